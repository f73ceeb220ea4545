package model

// Catalog is the metadata record describing a Block, resolved fresh per
// request from the catalog service. The root block is synthesized locally
// from configuration and never touches the network.
type Catalog struct {
	BlockName string         `json:"blockName"`
	Code      int            `json:"code"`
	Version   int            `json:"version"`
	Domain    string         `json:"domain"`
	ActorType string         `json:"actorType"`
	Raw       map[string]any `json:"-"`
}

// RootActorType is the actor-type assigned to the locally synthesized root
// block catalog.
const RootActorType = "pxr-root"
