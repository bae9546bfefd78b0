package flatfile

import (
	"github.com/partsbridge/partsync/pkg/connector/registry"
)

func init() {
	// Register the flat-file source connector
	_ = registry.RegisterSource("flatfile", New)
}
