// Package seed embeds the starter catalog.
package seed

import _ "embed"

// Products is the YAML catalog loaded when the products table is empty.
//
//go:embed products.yaml
var Products []byte
