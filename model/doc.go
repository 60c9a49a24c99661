// Package model defines the stable boundary types shared by the upgrade
// pipeline stages: declarations, module descriptors, bindings, upgrade states,
// and the error taxonomy.
//
// Selector and address identity is unaffected by any projection. These
// structs are the only types intended for direct JSON serialization by
// downstream clients.
package model
