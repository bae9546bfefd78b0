package odbc

import (
	"github.com/partsbridge/partsync/pkg/connector/registry"
)

func init() {
	// Register the ODBC source connector
	_ = registry.RegisterSource("odbc", New)
}
