// Package entity provides entity type metadata, the entity data type
// deriver and the access control contracts shared by entity handlers.
package entity
