package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedFile is the on-disk shape of the catalog seed
type SeedFile struct {
	Permissions []SeedPermission    `yaml:"permissions"`
	Modules     []SeedModule        `yaml:"modules"`
	Templates   []SeedTemplate      `yaml:"templates"`
	RoleDefault map[string][]string `yaml:"role_defaults"`
}

// SeedPermission is a catalog permission entry in the seed file
type SeedPermission struct {
	Key          string   `yaml:"key"`
	DisplayName  string   `yaml:"display_name"`
	Description  string   `yaml:"description"`
	Group        string   `yaml:"group"`
	IsFoundation bool     `yaml:"is_foundation"`
	IsSystem     bool     `yaml:"is_system"`
	Requires     []string `yaml:"requires"`
}

// SeedModule is a module entry in the seed file
type SeedModule struct {
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	Tier              string   `yaml:"tier"`
	BasePriceCents    int64    `yaml:"base_price_cents"`
	PerUserPriceCents int64    `yaml:"per_user_price_cents"`
	PermissionKeys    []string `yaml:"permission_keys"`
}

// SeedTemplate is a template entry in the seed file
type SeedTemplate struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	TargetRole     string   `yaml:"target_role"`
	PermissionKeys []string `yaml:"permission_keys"`
	Modules        []string `yaml:"modules"`
	IsSystem       bool     `yaml:"is_system"`
}

// Seeder applies seed files to the catalog tables
type Seeder struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSeeder creates a seeder over the catalog tables
func NewSeeder(db *sql.DB, log *logrus.Logger) *Seeder {
	if log == nil {
		log = logrus.New()
	}
	return &Seeder{db: db, log: log}
}

// ParseSeed parses and validates seed YAML
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	graph := make(map[string][]string, len(seed.Permissions))
	for _, p := range seed.Permissions {
		if !ValidKey(p.Key) {
			return nil, &ValidationError{Field: "key", Message: fmt.Sprintf("invalid permission key %q", p.Key)}
		}
		graph[p.Key] = p.Requires
	}
	for _, p := range seed.Permissions {
		if err := ValidateRequires(p.Key, p.Requires, graph); err != nil {
			return nil, err
		}
	}

	validTiers := map[string]bool{}
	for _, t := range []ModuleTier{TierCore, TierStandard, TierPremium} {
		validTiers[string(t)] = true
	}
	for _, m := range seed.Modules {
		if !validTiers[m.Tier] {
			return nil, &ValidationError{Field: "tier", Message: fmt.Sprintf("module %q has unknown tier %q", m.Name, m.Tier)}
		}
		for _, key := range m.PermissionKeys {
			if _, ok := graph[key]; !ok {
				return nil, &ValidationError{Field: "permission_keys", Message: fmt.Sprintf("module %q references unknown permission %q", m.Name, key)}
			}
		}
	}

	return &seed, nil
}

// Apply loads the seed file at path, falling back to the embedded default
// when path is empty, and upserts its contents.
func (s *Seeder) Apply(ctx context.Context, path string) error {
	data := defaultSeed
	source := "embedded"
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read seed file %s: %w", path, err)
		}
		data = fileData
		source = path
	}

	seed, err := ParseSeed(data)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"source":      source,
		"permissions": len(seed.Permissions),
		"modules":     len(seed.Modules),
		"templates":   len(seed.Templates),
	}).Info("Applying catalog seed")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start seed transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	for _, p := range seed.Permissions {
		requires := p.Requires
		if requires == nil {
			requires = []string{}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO permissions (key, display_name, description, perm_group, is_foundation, is_system, requires, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			ON CONFLICT (key) DO UPDATE
			SET display_name = EXCLUDED.display_name,
			    description = EXCLUDED.description,
			    perm_group = EXCLUDED.perm_group,
			    is_foundation = EXCLUDED.is_foundation,
			    is_system = EXCLUDED.is_system,
			    requires = EXCLUDED.requires,
			    updated_at = EXCLUDED.updated_at
		`, p.Key, p.DisplayName, p.Description, p.Group, p.IsFoundation, p.IsSystem, pq.Array(requires), now)
		if err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", p.Key, err)
		}
	}

	moduleIDs := make(map[string]int64, len(seed.Modules))
	for _, m := range seed.Modules {
		keys := m.PermissionKeys
		if keys == nil {
			keys = []string{}
		}
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO modules (name, description, tier, base_price_cents, per_user_price_cents, permission_keys, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
			ON CONFLICT (name) DO UPDATE
			SET description = EXCLUDED.description,
			    tier = EXCLUDED.tier,
			    base_price_cents = EXCLUDED.base_price_cents,
			    per_user_price_cents = EXCLUDED.per_user_price_cents,
			    permission_keys = EXCLUDED.permission_keys,
			    updated_at = EXCLUDED.updated_at
			RETURNING id
		`, m.Name, m.Description, m.Tier, m.BasePriceCents, m.PerUserPriceCents, pq.Array(keys), now).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to seed module %s: %w", m.Name, err)
		}
		moduleIDs[m.Name] = id
	}

	for _, t := range seed.Templates {
		ids := make([]int64, 0, len(t.Modules))
		for _, name := range t.Modules {
			id, ok := moduleIDs[name]
			if !ok {
				return &ValidationError{Field: "modules", Message: fmt.Sprintf("template %q references unknown module %q", t.Name, name)}
			}
			ids = append(ids, id)
		}
		keys := t.PermissionKeys
		if keys == nil {
			keys = []string{}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO permission_templates (name, description, target_role, permission_keys, module_ids, is_system, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			ON CONFLICT (name) DO UPDATE
			SET description = EXCLUDED.description,
			    target_role = EXCLUDED.target_role,
			    permission_keys = EXCLUDED.permission_keys,
			    module_ids = EXCLUDED.module_ids,
			    is_system = EXCLUDED.is_system,
			    updated_at = EXCLUDED.updated_at
		`, t.Name, t.Description, t.TargetRole, pq.Array(keys), pq.Array(ids), t.IsSystem, now)
		if err != nil {
			return fmt.Errorf("failed to seed template %s: %w", t.Name, err)
		}
	}

	for role, keys := range seed.RoleDefault {
		keysJSON, err := json.Marshal(keys)
		if err != nil {
			return fmt.Errorf("failed to encode role defaults for %s: %w", role, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO role_defaults (role, permission_keys, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (role) DO UPDATE
			SET permission_keys = EXCLUDED.permission_keys, updated_at = EXCLUDED.updated_at
		`, role, keysJSON, now)
		if err != nil {
			return fmt.Errorf("failed to seed role defaults for %s: %w", role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	s.log.WithField("source", source).Info("Catalog seed applied")
	return nil
}
