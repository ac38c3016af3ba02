package config_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/walteh/patchrc/pkg/config"
)

func ExampleLoad_yaml() {
	ctx := context.Background()

	catalogYAML := `patches:
  - id: banner
    markers: ["<!-- patchrc: banner -->"]
    strategy: markup_before_tag
    payload: "<!-- patchrc: banner -->"
    target: static/index.html
`

	tmpDir, err := os.MkdirTemp("", "patchrc-example")
	if err != nil {
		fmt.Printf("Error creating dir: %v\n", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0644); err != nil {
		fmt.Printf("Error writing catalog: %v\n", err)
		return
	}

	cat, err := config.Load(ctx, path)
	if err != nil {
		fmt.Printf("Error loading catalog: %v\n", err)
		return
	}

	d, err := cat.Get("banner")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(d)
	fmt.Println(filepath.Base(cat.TargetPath(d)))
	// Output:
	// banner (markup_before_tag)
	// index.html
}
