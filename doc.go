// Package tapestry is a typed, weighted, temporally-aware knowledge graph
// engine. It stores nodes and edges with closed type vocabularies, weighted
// relationships, and full mutation history, and exposes query, traversal,
// analytics, and temporal-reconstruction operations over them.
//
// The root package wires the subsystems under pkg/ into a single Engine
// facade:
//
//	cfg := config.Default()
//	client, err := tapestry.New(cfg, tapestry.WithoutPersistence())
//	if err != nil { ... }
//	defer client.Close()
//
//	node, err := client.AddNode(ctx, &types.Node{Type: types.PersonNodeType, Label: "Ada"})
//
// With a storage path configured, every mutation is journaled in an embedded
// Badger database and the full graph, history included, is replayed on the
// next start.
package tapestry
