// Package manifest reads the provenance fields of a project's package.json.
package manifest

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Package holds the package.json fields stamped into banners.
type Package struct {
	Name        string
	Version     string
	Description string
	Author      string
	License     string
	Repository  string
}

// Load reads path. A missing file yields a zero Package; malformed JSON is
// an error.
func Load(path string) (Package, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Package{}, nil
	}
	if err != nil {
		return Package{}, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse extracts the fields from package.json contents. author and
// repository may be either strings or objects.
func Parse(data []byte) (Package, error) {
	if !gjson.ValidBytes(data) {
		return Package{}, fmt.Errorf("parse manifest: invalid JSON")
	}
	res := gjson.GetManyBytes(data, "name", "version", "description", "license")
	return Package{
		Name:        res[0].String(),
		Version:     res[1].String(),
		Description: res[2].String(),
		License:     res[3].String(),
		Author:      stringOrField(gjson.GetBytes(data, "author"), "name"),
		Repository:  stringOrField(gjson.GetBytes(data, "repository"), "url"),
	}, nil
}

func stringOrField(v gjson.Result, field string) string {
	if v.IsObject() {
		return v.Get(field).String()
	}
	return v.String()
}
