// Schema fixture loader: builds a Registry from a declarative YAML
// description.
//
// This is not the production schema-definition-loader spec.md leaves out
// of scope (that component parses the original's own conf-file grammar);
// it is a small, self-contained bootstrap used by tests and by the cmd/
// maintenance tools, which — like the original's own standalone
// tools/rwhois_* programs — need *some* way to stand up a Registry before
// they can touch a data directory. Grounded on vippsas-sqlcode's
// sqltest/fixture.go config-driven bootstrap pattern, using
// gopkg.in/yaml.v3 for the decode.
package rwhois

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FixtureAttribute describes one attribute within FixtureClass.
type FixtureAttribute struct {
	Name       string `yaml:"name"`
	Aliases    []string `yaml:"aliases,omitempty"`
	LocalID    int    `yaml:"local_id"`
	Type       string `yaml:"type,omitempty"`       // "text" (default), "see_also", "id"
	Index      string `yaml:"index,omitempty"`      // "none" (default), "exact", "cidr", "soundex", "all"
	PrimaryKey bool   `yaml:"primary_key,omitempty"`
	Required   bool   `yaml:"required,omitempty"`
	Repeatable bool   `yaml:"repeatable,omitempty"`
	MultiLine  bool   `yaml:"multi_line,omitempty"`
	Hierarchical bool `yaml:"hierarchical,omitempty"`
	Private    bool   `yaml:"private,omitempty"`
	FormatPattern string `yaml:"format,omitempty"` // regexp source, optional
}

// FixtureClass describes one class within FixtureAuthArea.
type FixtureClass struct {
	Name           string             `yaml:"name"`
	DBDir          string             `yaml:"db_dir"`
	ExternalParser string             `yaml:"external_parser,omitempty"`
	Attributes     []FixtureAttribute `yaml:"attributes"`
}

// FixtureAuthArea describes one authority area.
type FixtureAuthArea struct {
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type,omitempty"` // "primary" (default), "secondary"
	DataDir   string         `yaml:"data_dir"`
	Guardians []string       `yaml:"guardians,omitempty"`
	Classes   []FixtureClass `yaml:"classes"`
}

// Fixture is the root of a schema fixture file: one or more authority
// areas, each with its classes and attribute definitions.
type Fixture struct {
	AuthAreas []FixtureAuthArea `yaml:"auth_areas"`
}

// LoadFixture parses a YAML fixture file at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newErr(KindSchema, "read fixture: "+path, err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, newErr(KindSchema, "parse fixture: "+path, err)
	}
	return &fx, nil
}

func parseAttrType(s string) AttrType {
	switch s {
	case "see_also":
		return TypeSeeAlso
	case "id":
		return TypeID
	default:
		return TypeText
	}
}

func parseIndexKind(s string) IndexKind {
	switch s {
	case "exact":
		return IndexExact
	case "cidr":
		return IndexCIDR
	case "soundex":
		return IndexSoundex
	case "all":
		return IndexAll
	default:
		return IndexNone
	}
}

func parseAuthAreaType(s string) AuthorityAreaType {
	if s == "secondary" {
		return Secondary
	}
	return Primary
}

// Build populates a fresh Registry from the fixture, assigning global ids
// in file order exactly as RegisterClass does for a live schema loader.
func (fx *Fixture) Build() (*Registry, error) {
	reg := NewRegistry()
	for _, fa := range fx.AuthAreas {
		aa, err := reg.RegisterAuthorityArea(fa.Name, parseAuthAreaType(fa.Type), fa.DataDir)
		if err != nil {
			return nil, err
		}
		aa.Guardians = fa.Guardians

		for _, fc := range fa.Classes {
			var attrs []*AttributeDef
			for _, fattr := range fc.Attributes {
				attr := &AttributeDef{
					Name:         fattr.Name,
					Aliases:      fattr.Aliases,
					LocalID:      fattr.LocalID,
					Type:         parseAttrType(fattr.Type),
					Index:        parseIndexKind(fattr.Index),
					PrimaryKey:   fattr.PrimaryKey,
					Required:     fattr.Required,
					Repeatable:   fattr.Repeatable,
					MultiLine:    fattr.MultiLine,
					Hierarchical: fattr.Hierarchical,
					Private:      fattr.Private,
				}
				if fattr.FormatPattern != "" {
					f, err := NewFormat(fattr.Name, fattr.FormatPattern)
					if err != nil {
						return nil, err
					}
					attr.Format = f
				}
				attrs = append(attrs, attr)
			}
			if _, err := reg.RegisterClass(aa, fc.Name, fc.DBDir, attrs, fc.ExternalParser); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

// OpenClassFromFixture loads fixturePath, resolves authAreaName/className
// within it, and opens that class's FileRegistry — the common bootstrap
// sequence every cmd/ maintenance tool needs before it can touch a data
// directory.
func OpenClassFromFixture(fixturePath, authAreaName, className string) (*AuthorityArea, *Class, *FileRegistry, error) {
	fx, err := LoadFixture(fixturePath)
	if err != nil {
		return nil, nil, nil, err
	}
	schemaReg, err := fx.Build()
	if err != nil {
		return nil, nil, nil, err
	}
	aa, err := schemaReg.AuthorityArea(authAreaName)
	if err != nil {
		return nil, nil, nil, err
	}
	class := aa.Class(className)
	if class == nil {
		return nil, nil, nil, ErrUnknownClass
	}
	fileReg, err := OpenFileRegistry(class.DBDir)
	if err != nil {
		return nil, nil, nil, err
	}
	return aa, class, fileReg, nil
}
