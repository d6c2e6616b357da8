package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

func isYAML(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}

func decode(r io.Reader, ext string, v any) error {
	if isYAML(ext) {
		return yaml.NewDecoder(r).Decode(v)
	}
	return json.NewDecoder(r).Decode(v)
}

// ParseAttachments reads the attachment modifier table, a mapping of
// attachment id to its modifier fields. ext selects YAML (".yaml", ".yml")
// or JSON (anything else).
func ParseAttachments(r io.Reader, ext string) (core.AttachmentTable, error) {
	var raw map[string]core.AttachmentModifier
	if err := decode(r, ext, &raw); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	table := make(core.AttachmentTable, len(raw))
	for id, mod := range raw {
		mod.ID = id
		table[id] = mod
	}
	return table, nil
}

// ParseGroups reads the weapon group table: category key to display names.
func ParseGroups(r io.Reader, ext string) (core.WeaponGroups, error) {
	var groups core.WeaponGroups
	if err := decode(r, ext, &groups); err != nil {
		return nil, fmt.Errorf("decode weapon groups: %w", err)
	}
	if groups == nil {
		groups = core.WeaponGroups{}
	}
	return groups, nil
}
