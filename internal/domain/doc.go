// Package domain defines the core domain types for the assetgraph inventory
// engine.
//
// # Graph Primitives
//
// Node and Edge are the storage-level vertex and relationship of the backing
// graph store. Every node carries labels (classes, inventoryObjects, pools,
// templates, ...) and a property bag; every edge carries a type (CHILD_OF,
// RELATED_TO_SPECIAL, EXTENDS, ...) and a property bag.
//
// # Schema
//
// ClassDefinition and AttributeDefinition describe the class hierarchy.
// Classes form a single-inheritance tree under one root; the attribute set
// of a class is the union of its own and its ancestors' attributes.
// AttributeType is a closed variant: a primitive Kind or a reference to a
// list-type class.
//
// # Business Objects
//
// BusinessObject is an instance of a concrete class placed in the
// containment tree below the dummy root sentinel (id "-1").
//
// # Errors
//
// Operations fail with *Error values whose Kind is one of ErrNotFound,
// ErrBusinessObjectNotFound, ErrInvalidArgument, ErrOperationNotPermitted or
// ErrConflict. The Class, ID and Attribute fields carry the message
// arguments.
package domain
