package system

import (
	"embed"
	"io/fs"

	"github.com/tendant/simple-cms/pkg/simplecms/configschema"
)

//go:embed schema/*.schema.yml
var schemaFiles embed.FS

// SchemaFS returns the config schema documents shipped with the system.
func SchemaFS() fs.FS {
	sub, err := fs.Sub(schemaFiles, "schema")
	if err != nil {
		panic(err)
	}
	return sub
}

// RegisterSchema loads the system config schema into reg.
func RegisterSchema(reg *configschema.Registry) error {
	return reg.LoadFS(SchemaFS())
}
