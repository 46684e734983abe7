// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// NodeType categorizes a HeritageNet graph node.
type NodeType string

const (
	NodeClinicalObservation NodeType = "ClinicalObservation"
	NodeTherapeuticOutcome  NodeType = "TherapeuticOutcome"
	NodeContextualFactor    NodeType = "ContextualFactor"
	NodeMechanisticConcept  NodeType = "MechanisticConcept"
	NodeTherapeuticApproach NodeType = "TherapeuticApproach"
	NodeSourceText          NodeType = "SourceText"
)

// KnownNodeTypes is the set of node types the extraction prompt asks for.
var KnownNodeTypes = map[NodeType]bool{
	NodeClinicalObservation: true,
	NodeTherapeuticOutcome:  true,
	NodeContextualFactor:    true,
	NodeMechanisticConcept:  true,
	NodeTherapeuticApproach: true,
	NodeSourceText:          true,
}

// Node is one entity in the knowledge graph.
type Node struct {
	// ID is the entity label as written by the model (e.g. "spinal congestion").
	ID string `json:"id" yaml:"id"`

	// Type is the node category. Unknown types are kept verbatim.
	Type NodeType `json:"type" yaml:"type"`
}

// Relationship is a typed edge between two nodes.
type Relationship struct {
	Subject string `json:"subject" yaml:"subject"`
	Object  string `json:"object" yaml:"object"`
	Type    string `json:"type" yaml:"type"`

	// Timestamp is the optional temporal qualifier (e.g. "1824").
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// GraphStats summarises a stored graph.
type GraphStats struct {
	Nodes         int            `json:"nodes" yaml:"nodes"`
	Relationships int            `json:"relationships" yaml:"relationships"`
	NodeTypes     map[string]int `json:"node_types" yaml:"node_types"`
	RelTypes      map[string]int `json:"relationship_types" yaml:"relationship_types"`
}
