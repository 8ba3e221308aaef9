// Package bridge holds the canonical entities of the bridge store that mediates
// between the ERP and the e-commerce platform.
//
// Entities are identified by surrogate UUIDs internally and resolved across systems
// by natural keys: ERP numbers, platform ids, e-mail addresses and media file names.
// Platform ids are generated once on insert and never overwritten by Update.
package bridge
