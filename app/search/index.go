package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/lysyi3m/keepit/app/database"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Index is an owner-scoped full-text index over saved items.
type Index struct {
	index bleve.Index

	rebuildMu sync.Mutex

	mu sync.Mutex
	// touched holds id -> owner for items indexed while a rebuild is running.
	touched map[string]string
}

type IndexedItem struct {
	ID          string
	OwnerID     string
	Title       string
	Summary     string
	Category    string
	Tags        []string
	Domain      string
	ContentKind string
	CreatedAt   time.Time
}

type Hit struct {
	ID    string
	Score float64
}

// Open opens the index at path, creating it when missing.
// An empty path yields an in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
		slog.Info("Search index created", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"

	keywordField := bleve.NewKeywordFieldMapping()

	itemMapping := bleve.NewDocumentMapping()
	itemMapping.AddFieldMappingsAt("ID", keywordField)
	itemMapping.AddFieldMappingsAt("OwnerID", keywordField)
	itemMapping.AddFieldMappingsAt("Title", textField)
	itemMapping.AddFieldMappingsAt("Summary", textField)
	itemMapping.AddFieldMappingsAt("Category", bleve.NewTextFieldMapping())
	itemMapping.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())
	itemMapping.AddFieldMappingsAt("Domain", bleve.NewTextFieldMapping())
	itemMapping.AddFieldMappingsAt("ContentKind", keywordField)
	itemMapping.AddFieldMappingsAt("CreatedAt", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = itemMapping

	return indexMapping
}

func (i *Index) Close() error {
	return i.index.Close()
}

func (i *Index) IndexItem(item *database.SavedItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.touched != nil {
		i.touched[item.ID] = item.OwnerID
	}

	doc := toIndexedItem(item)
	if err := i.index.Index(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to index item %s: %w", item.ID, err)
	}
	return nil
}

// Search matches q against the owner's items only; hits are ordered by score.
func (i *Index) Search(ownerID, q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if ownerID == "" || q == "" {
		return []Hit{}, nil
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	owner := bleve.NewTermQuery(ownerID)
	owner.SetField("OwnerID")

	var fields []query.Query
	for _, field := range []string{"Title", "Summary", "Category", "Tags", "Domain"} {
		match := bleve.NewMatchQuery(q)
		match.SetField(field)
		fields = append(fields, match)
	}

	title := bleve.NewMatchQuery(q)
	title.SetField("Title")
	title.SetBoost(3)
	fields = append(fields, title)

	prefix := bleve.NewPrefixQuery(strings.ToLower(q))
	prefix.SetField("Tags")
	fields = append(fields, prefix)

	request := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(owner, bleve.NewDisjunctionQuery(fields...)), limit, 0, false)

	results, err := i.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		hits = append(hits, Hit{ID: hit.ID, Score: hit.Score})
	}

	return hits, nil
}

// Rebuild replaces the index contents with the stored items in one batch and
// drops documents whose rows are gone. Items indexed while the snapshot was
// being read are re-read from repo so an older snapshot row never wins.
func (i *Index) Rebuild(ctx context.Context, repo database.ItemRepository) (int, error) {
	i.rebuildMu.Lock()
	defer i.rebuildMu.Unlock()

	i.mu.Lock()
	i.touched = make(map[string]string)
	i.mu.Unlock()

	items, err := repo.GetAllItems(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()

	touched := i.touched
	i.touched = nil

	if err != nil {
		return 0, fmt.Errorf("failed to list items: %w", err)
	}

	stored := make(map[string]struct{}, len(items))
	batch := i.index.NewBatch()

	for idx := range items {
		item := &items[idx]
		stored[item.ID] = struct{}{}

		if _, ok := touched[item.ID]; ok {
			continue
		}

		doc := toIndexedItem(item)
		if err := batch.Index(doc.ID, doc); err != nil {
			return 0, fmt.Errorf("failed to batch index %s: %w", doc.ID, err)
		}
	}

	for id, ownerID := range touched {
		item, err := repo.GetItem(ctx, id, ownerID)
		if errors.Is(err, database.ErrNotFound) {
			batch.Delete(id)
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to reload item %s: %w", id, err)
		}

		stored[id] = struct{}{}
		doc := toIndexedItem(item)
		if err := batch.Index(doc.ID, doc); err != nil {
			return 0, fmt.Errorf("failed to batch index %s: %w", doc.ID, err)
		}
	}

	indexed, err := i.indexedIDs()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, id := range indexed {
		if _, ok := stored[id]; !ok {
			batch.Delete(id)
			pruned++
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	if pruned > 0 {
		slog.Info("Pruned search documents without stored items", "count", pruned)
	}

	return len(stored), nil
}

func (i *Index) indexedIDs() ([]string, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	request := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	results, err := i.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	ids := make([]string, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

func toIndexedItem(item *database.SavedItem) *IndexedItem {
	doc := &IndexedItem{
		ID:          item.ID,
		OwnerID:     item.OwnerID,
		Title:       item.Title,
		Summary:     item.Summary,
		Category:    item.Category,
		Tags:        item.Tags,
		ContentKind: item.ContentKind,
		CreatedAt:   item.CreatedAt,
	}
	if item.PreviewMetadata != nil {
		doc.Domain = item.PreviewMetadata.Domain
	}
	return doc
}
