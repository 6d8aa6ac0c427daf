package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FileName is the catalog file expected under the base path
const FileName = "products-to-import.json"

var defaultVariantPrice = decimal.RequireFromString("1.99")

// Store is the persistence the importer writes to
type Store interface {
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, name, description string, parentID *int64) (*models.Category, error)
	MoveCategory(ctx context.Context, id int64, newParentID *int64) error
	CreateProduct(ctx context.Context, in store.NewProduct) error
	GetCollectionByName(ctx context.Context, name string) (*models.Collection, error)
	CreateCollection(ctx context.Context, name, description string) (*models.Collection, error)
}

// Record is one product entry of the import file
type Record struct {
	Title          string           `json:"title"`
	CleanTitle     string           `json:"clean_title"`
	Status         string           `json:"status"`
	LocalImagePath string           `json:"local_image_path"`
	SKU            string           `json:"sku"`
	Price          *decimal.Decimal `json:"price"`
	HeightCM       decimal.Decimal  `json:"height_cm"`
	WidthCM        decimal.Decimal  `json:"width_cm"`
	DepthCM        decimal.Decimal  `json:"depth_cm"`
	Categories     []string         `json:"categories"`
	Collections    []string         `json:"collections"`
	Variants       []VariantRecord  `json:"variants"`
}

// VariantRecord is an explicit variant of a Record
type VariantRecord struct {
	SKU            string            `json:"sku"`
	Price          *decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal  `json:"compare_at_price"`
	StockQuantity  int               `json:"stock_quantity"`
	Color          string            `json:"color"`
	Attributes     models.Attributes `json:"attributes"`
}

// Result counts the outcome of an import
type Result struct {
	Imported int
	Skipped  int
}

// Importer bulk-loads products and variants
type Importer struct {
	store       Store
	categories  map[string]int64
	collections map[string]int64
	logger      *zap.Logger
}

// New creates a new importer
func New(store Store) *Importer {
	return &Importer{
		store:       store,
		categories:  map[string]int64{},
		collections: map[string]int64{},
		logger:      util.Named("importer"),
	}
}

// Run imports basePath/products-to-import.json. Entries without a clean
// title, or whose image is missing on disk, are skipped.
func (im *Importer) Run(ctx context.Context, basePath string) (Result, error) {
	var result Result

	jsonPath := filepath.Join(basePath, FileName)
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return result, fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return result, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
	}
	im.logger.Info("Loaded products", zap.Int("count", len(records)), zap.String("path", jsonPath))

	for _, rec := range records {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		title := rec.Title
		if title == "" {
			title = "Untitled"
		}

		if strings.TrimSpace(rec.CleanTitle) == "" {
			im.logger.Warn("Skipping product without clean_title", zap.String("title", title))
			result.Skipped++
			continue
		}

		if rec.LocalImagePath != "" {
			if _, err := os.Stat(filepath.Join(basePath, rec.LocalImagePath)); err != nil {
				im.logger.Warn("Skipping product without valid image path",
					zap.String("title", title),
					zap.String("image", rec.LocalImagePath))
				result.Skipped++
				continue
			}
		}

		if err := im.importRecord(ctx, rec); err != nil {
			im.logger.Error("Error importing product", zap.String("title", title), zap.Error(err))
			result.Skipped++
			continue
		}

		im.logger.Info("Imported product", zap.String("title", rec.CleanTitle))
		result.Imported++
	}

	im.logger.Info("Import completed",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (im *Importer) importRecord(ctx context.Context, rec Record) error {
	categoryIDs := make([]int64, 0, len(rec.Categories))
	for _, path := range rec.Categories {
		id, err := im.ensureCategoryPath(ctx, path)
		if err != nil {
			return err
		}
		categoryIDs = append(categoryIDs, id)
	}

	collectionIDs := make([]int64, 0, len(rec.Collections))
	for _, name := range rec.Collections {
		id, err := im.ensureCollection(ctx, name)
		if err != nil {
			return err
		}
		collectionIDs = append(collectionIDs, id)
	}

	variants := recordVariants(rec)

	priceStart := variants[0].Price
	for _, v := range variants[1:] {
		if v.Price.LessThan(priceStart) {
			priceStart = v.Price
		}
	}

	product := &models.Product{
		Title:      strings.TrimSpace(rec.CleanTitle),
		Status:     strings.ToUpper(rec.Status),
		PriceStart: priceStart,
		Thumbnail:  rec.LocalImagePath,
	}
	switch product.Status {
	case "":
		product.Status = models.ProductStatusDraft
	case models.ProductStatusDraft, models.ProductStatusPublished, models.ProductStatusArchived:
	default:
		return fmt.Errorf("unknown product status %q", rec.Status)
	}
	err := im.store.CreateProduct(ctx, store.NewProduct{
		Product:       product,
		Variants:      variants,
		CategoryIDs:   categoryIDs,
		CollectionIDs: collectionIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (im *Importer) ensureCollection(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if id, ok := im.collections[name]; ok {
		return id, nil
	}

	collection, err := im.store.GetCollectionByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		collection, err = im.store.CreateCollection(ctx, name, "")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve collection %q: %w", name, err)
	}

	im.collections[name] = collection.ID
	return collection.ID, nil
}

// recordVariants returns the explicit variants of a record or, when it has
// none, a single variant built from the record's own sku and dimensions
func recordVariants(rec Record) []models.ProductVariant {
	if len(rec.Variants) == 0 {
		price := defaultVariantPrice
		if rec.Price != nil {
			price = *rec.Price
		}
		return []models.ProductVariant{{
			SKU:        rec.SKU,
			Price:      price,
			Height:     rec.HeightCM,
			Width:      rec.WidthCM,
			Length:     rec.DepthCM,
			Image:      rec.LocalImagePath,
			Attributes: models.Attributes{},
		}}
	}

	out := make([]models.ProductVariant, 0, len(rec.Variants))
	for _, vr := range rec.Variants {
		v := models.ProductVariant{
			SKU:           vr.SKU,
			Price:         defaultVariantPrice,
			StockQuantity: vr.StockQuantity,
			Color:         vr.Color,
			Height:        rec.HeightCM,
			Width:         rec.WidthCM,
			Length:        rec.DepthCM,
			Image:         rec.LocalImagePath,
			Attributes:    vr.Attributes,
		}
		if vr.Price != nil {
			v.Price = *vr.Price
		}
		if vr.CompareAtPrice != nil {
			v.CompareAtPrice = decimal.NewNullDecimal(*vr.CompareAtPrice)
		}
		if v.Attributes == nil {
			v.Attributes = models.Attributes{}
		}
		out = append(out, v)
	}
	return out
}

// ensureCategoryPath resolves "Parent/Child" style paths, creating missing
// categories along the way, and returns the id of the last segment. An
// existing root category named below a parent is moved under it.
func (im *Importer) ensureCategoryPath(ctx context.Context, path string) (int64, error) {
	var parentID *int64
	var id int64

	for _, name := range strings.Split(path, "/") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if cached, ok := im.categories[name]; ok {
			id = cached
		} else {
			category, err := im.store.GetCategoryByName(ctx, name)
			switch {
			case errors.Is(err, store.ErrNotFound):
				category, err = im.store.CreateCategory(ctx, name, "", parentID)
				if err == nil {
					im.logger.Info("Created category", zap.String("name", name))
				}
			case err == nil && parentID != nil && !category.ParentID.Valid:
				err = im.store.MoveCategory(ctx, category.ID, parentID)
				if err == nil {
					im.logger.Info("Moved category", zap.String("name", name), zap.Int64("parent_id", *parentID))
				}
			}
			if err != nil {
				return 0, fmt.Errorf("failed to resolve category %q: %w", name, err)
			}
			id = category.ID
			im.categories[name] = id
		}

		current := id
		parentID = &current
	}

	if id == 0 {
		return 0, fmt.Errorf("empty category path %q", path)
	}
	return id, nil
}
