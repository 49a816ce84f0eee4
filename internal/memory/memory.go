// Package memory is a hierarchical long-term store for facts surfaced during
// discussions. A Manager is an immutable snapshot, like the conversation
// store: mutations return a new manager.
package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/immutable"
)

// ResourceType tags where a memory resource came from.
type ResourceType string

const (
	ResourceConversation ResourceType = "conversation"
	ResourceDocument     ResourceType = "document"
	ResourceEvaluation   ResourceType = "evaluation"
)

// Category groups related memory items, optionally under a parent.
type Category struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	ParentCategoryID string    `json:"parent_category_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Item is one remembered fact.
type Item struct {
	ID             string    `json:"id"`
	CategoryID     string    `json:"category_id"`
	Content        string    `json:"content"`
	Importance     float64   `json:"importance"` // 0-1
	AccessCount    int       `json:"access_count"`
	LastAccessedAt time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Resource links an item back to its source material.
type Resource struct {
	ID           string       `json:"id"`
	ItemID       string       `json:"item_id"`
	ResourceType ResourceType `json:"resource_type"`
	SourceID     string       `json:"source_id"`
	Content      string       `json:"content"`
	CreatedAt    time.Time    `json:"created_at"`
}

// SearchResult pairs a matched item with its category and relevance.
type SearchResult struct {
	Item           Item     `json:"item"`
	Category       Category `json:"category"`
	RelevanceScore float64  `json:"relevance_score"`
}

const defaultImportance = 0.5

// Manager is an immutable memory store.
type Manager struct {
	categories map[string]Category
	items      map[string]Item
	resources  map[string]Resource
}

// NewManager creates an empty memory store.
func NewManager() *Manager {
	return &Manager{
		categories: make(map[string]Category),
		items:      make(map[string]Item),
		resources:  make(map[string]Resource),
	}
}

// CreateCategory adds a category and returns the updated manager with it.
func (m *Manager) CreateCategory(name, description, parentID string) (*Manager, Category) {
	cat := Category{
		ID:               core.NewID(),
		Name:             name,
		Description:      description,
		ParentCategoryID: parentID,
		CreatedAt:        time.Now(),
	}
	return &Manager{
		categories: immutable.MapSet(m.categories, cat.ID, cat),
		items:      m.items,
		resources:  m.resources,
	}, cat
}

// AddItem stores a fact. An importance outside (0, 1] takes the default 0.5.
func (m *Manager) AddItem(categoryID, content string, importance float64) (*Manager, Item) {
	if importance <= 0 || importance > 1 {
		importance = defaultImportance
	}
	item := Item{
		ID:         core.NewID(),
		CategoryID: categoryID,
		Content:    content,
		Importance: importance,
		CreatedAt:  time.Now(),
	}
	return &Manager{
		categories: m.categories,
		items:      immutable.MapSet(m.items, item.ID, item),
		resources:  m.resources,
	}, item
}

// AddResource links source material to an item.
func (m *Manager) AddResource(itemID string, resourceType ResourceType, sourceID, content string) (*Manager, Resource) {
	res := Resource{
		ID:           core.NewID(),
		ItemID:       itemID,
		ResourceType: resourceType,
		SourceID:     sourceID,
		Content:      content,
		CreatedAt:    time.Now(),
	}
	return &Manager{
		categories: m.categories,
		items:      m.items,
		resources:  immutable.MapSet(m.resources, res.ID, res),
	}, res
}

// Search scores every item against the query: one point per matched term,
// plus boosts for importance, recent access, and access frequency. Items in
// unknown categories are skipped. Results come back sorted by relevance.
func (m *Manager) Search(query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = 10
	}

	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if len(t) > 2 {
			terms = append(terms, t)
		}
	}

	var results []SearchResult
	for _, item := range m.items {
		content := strings.ToLower(item.Content)
		var score float64
		for _, term := range terms {
			if strings.Contains(content, term) {
				score++
			}
		}

		score += item.Importance * 0.5

		if !item.LastAccessedAt.IsZero() {
			hoursOld := time.Since(item.LastAccessedAt).Hours()
			if hoursOld < 24 {
				score += 0.5
			} else if hoursOld < 168 {
				score += 0.2
			}
		}

		freq := float64(item.AccessCount) * 0.1
		if freq > 1 {
			freq = 1
		}
		score += freq

		if score > 0 {
			if cat, ok := m.categories[item.CategoryID]; ok {
				results = append(results, SearchResult{Item: item, Category: cat, RelevanceScore: score})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].RelevanceScore > results[j].RelevanceScore })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// RecordAccess bumps an item's access count and timestamp. Unknown IDs are a
// no-op.
func (m *Manager) RecordAccess(itemID string) *Manager {
	item, ok := m.items[itemID]
	if !ok {
		return m
	}
	item.AccessCount++
	item.LastAccessedAt = time.Now()
	return &Manager{
		categories: m.categories,
		items:      immutable.MapSet(m.items, itemID, item),
		resources:  m.resources,
	}
}

// GetCategory returns a category by ID.
func (m *Manager) GetCategory(id string) (Category, bool) {
	cat, ok := m.categories[id]
	return cat, ok
}

// CategoryByName returns the first category with the given name.
func (m *Manager) CategoryByName(name string) (Category, bool) {
	for _, cat := range m.categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// Categories returns every category, sorted by creation time.
func (m *Manager) Categories() []Category {
	out := make([]Category, 0, len(m.categories))
	for _, cat := range m.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// CategoryItems returns every item in a category.
func (m *Manager) CategoryItems(categoryID string) []Item {
	var out []Item
	for _, item := range m.items {
		if item.CategoryID == categoryID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ItemResources returns every resource linked to an item.
func (m *Manager) ItemResources(itemID string) []Resource {
	var out []Resource
	for _, res := range m.resources {
		if res.ItemID == itemID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PruneByImportance drops items scoring below the threshold, along with
// their resources.
func (m *Manager) PruneByImportance(threshold float64) *Manager {
	removed := make(map[string]bool)
	nextItems := make(map[string]Item, len(m.items))
	for id, item := range m.items {
		if item.Importance < threshold {
			removed[id] = true
			continue
		}
		nextItems[id] = item
	}

	nextResources := make(map[string]Resource, len(m.resources))
	for id, res := range m.resources {
		if !removed[res.ItemID] {
			nextResources[id] = res
		}
	}

	return &Manager{categories: m.categories, items: nextItems, resources: nextResources}
}
