// Package realm tracks the marketplace partitions the pipeline watches. A
// partition is one region+realm pair; partitions are fully independent and
// reconciled in isolation.
package realm

import (
	"fmt"
	"regexp"
	"strings"
)

var slugCleaner = regexp.MustCompile(`[^a-z0-9-]`)

// Partition identifies one region+realm marketplace.
type Partition struct {
	Region string `yaml:"region" json:"region"`
	Realm  string `yaml:"realm" json:"realm"`

	// Name is the display name used in notifications, e.g. "Medivh".
	// Defaults to the realm slug.
	Name string `yaml:"name" json:"name,omitempty"`
}

// Key returns the partition key used for markers, queue routing and storage
// paths, e.g. "eu-medivh".
func (p Partition) Key() string {
	return p.Region + "-" + p.Realm
}

// Validate checks region and realm are present and slug-shaped.
func (p Partition) Validate() error {
	if p.Region == "" {
		return fmt.Errorf("partition region is required")
	}
	if p.Realm == "" {
		return fmt.Errorf("partition realm is required")
	}
	if p.Realm != Slug(p.Realm) {
		return fmt.Errorf("realm %q is not a slug (want %q)", p.Realm, Slug(p.Realm))
	}
	return nil
}

// Slug normalizes a realm name to its slug form: lower case, spaces and
// apostrophes collapsed to hyphens, everything else dropped.
func Slug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "'", "")
	return slugCleaner.ReplaceAllString(s, "")
}

// Registry holds the configured partitions, keyed for lookup.
type Registry struct {
	partitions []Partition
	byKey      map[string]Partition
}

// NewRegistry builds a registry, rejecting duplicates and invalid partitions.
func NewRegistry(partitions []Partition) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Partition, len(partitions))}
	for _, p := range partitions {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if p.Name == "" {
			p.Name = p.Realm
		}
		key := p.Key()
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate partition %s", key)
		}
		r.byKey[key] = p
		r.partitions = append(r.partitions, p)
	}
	return r, nil
}

// All returns the partitions in configuration order.
func (r *Registry) All() []Partition {
	return r.partitions
}

// Get looks a partition up by key.
func (r *Registry) Get(key string) (Partition, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

// Len returns the number of partitions.
func (r *Registry) Len() int {
	return len(r.partitions)
}
