// Package config loads patch catalogs for patchrc.
//
//	            +-------------+
//	            |   Catalog   |
//	            | (patches)   |
//	            +------+------+
//	                   |
//	      +------------+------------+
//	      |            |            |
//	+-----+----+ +-----+----+ +-----+----+
//	|   YAML   | |   HCL    | |   JSON   |
//	|  Parser  | |  Parser  | |  Parser  |
//	+----------+ +----------+ +----------+
//
// 🎯 Purpose:
// - Reads a catalog of patch descriptors from disk
// - Picks the parser by file extension
// - Validates every descriptor and the uniqueness of ids
// - Extends the validator registry with catalog routes
//
// 🔄 Flow:
//  1. Load reads the file
//  2. The registered parser decodes it strictly (unknown fields fail)
//  3. Catalog.Validate checks each descriptor
//  4. Callers look patches up with Catalog.Get and build validators with
//     Catalog.Registry
//
// YAML:
//
//	validators:
//	  - pattern: "**/templates/*.py"
//	    validator: none
//	patches:
//	  - id: greeting-import
//	    markers: ["# patchrc: greeting"]
//	    strategy: after_last_import
//	    payload: "import greeting  # patchrc: greeting"
//	    target: app/main.py
//
// HCL:
//
//	validator "**/templates/*.py" {
//	  name = "none"
//	}
//
//	patch "banner" {
//	  markers  = ["<!-- patchrc: banner -->"]
//	  strategy = "markup_before_tag"
//	  payload  = "<!-- patchrc: banner --><link rel=\"stylesheet\" href=\"/banner.css\">"
//	  target   = "static/index.html"
//
//	  markup {
//	    before = "</head>"
//	  }
//	}
//
// HCL evaluates "${...}" inside strings, so regex templates write group
// references as "$${1}".
//
// Relative targets are resolved against the directory holding the catalog.
package config
