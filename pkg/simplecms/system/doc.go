// Package system holds the entities and config schema every site ships
// with: date formats and their access control, site, file and image
// toolkit settings.
package system
