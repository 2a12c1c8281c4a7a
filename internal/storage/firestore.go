package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/korting/internal/models"
)

const firestoreCollection = "deals"

// dealDoc is the Firestore shape of a Deal. Prices are kept as decimal text.
type dealDoc struct {
	Title                  string    `firestore:"title"`
	Description            string    `firestore:"description"`
	Merchant               string    `firestore:"merchant"`
	MerchantLogo           string    `firestore:"merchantLogo"`
	OriginalPrice          string    `firestore:"originalPrice"`
	SalePrice              string    `firestore:"salePrice"`
	OriginalPriceEstimated bool      `firestore:"originalPriceEstimated"`
	DiscountPercentage     int       `firestore:"discountPercentage"`
	CouponCode             string    `firestore:"couponCode,omitempty"`
	AffiliateURL           string    `firestore:"affiliateURL"`
	SourceURL              string    `firestore:"sourceURL"`
	Category               string    `firestore:"category"`
	ImageURL               string    `firestore:"imageURL"`
	ValidFrom              time.Time `firestore:"validFrom"`
	ValidUntil             time.Time `firestore:"validUntil"`
	Source                 string    `firestore:"source"`
	Status                 string    `firestore:"status"`
	CreatedAt              time.Time `firestore:"createdAt"`
	IsActive               bool      `firestore:"isActive"`
}

func toDoc(d models.Deal) dealDoc {
	return dealDoc{
		Title:                  d.Title,
		Description:            d.Description,
		Merchant:               d.Merchant,
		MerchantLogo:           d.MerchantLogo,
		OriginalPrice:          d.OriginalPrice.StringFixed(2),
		SalePrice:              d.SalePrice.StringFixed(2),
		OriginalPriceEstimated: d.OriginalPriceEstimated,
		DiscountPercentage:     d.DiscountPercentage,
		CouponCode:             d.CouponCode,
		AffiliateURL:           d.AffiliateURL,
		SourceURL:              d.SourceURL,
		Category:               string(d.Category),
		ImageURL:               d.ImageURL,
		ValidFrom:              d.ValidFrom,
		ValidUntil:             d.ValidUntil,
		Source:                 d.Source,
		Status:                 string(d.Status),
		CreatedAt:              d.CreatedAt,
		IsActive:               d.IsActive,
	}
}

func fromDoc(id string, doc dealDoc) (models.Deal, error) {
	original, err := decimal.NewFromString(doc.OriginalPrice)
	if err != nil {
		return models.Deal{}, fmt.Errorf("deal %s: originalPrice: %w", id, err)
	}
	sale, err := decimal.NewFromString(doc.SalePrice)
	if err != nil {
		return models.Deal{}, fmt.Errorf("deal %s: salePrice: %w", id, err)
	}
	return models.Deal{
		ID:                     id,
		Title:                  doc.Title,
		Description:            doc.Description,
		Merchant:               doc.Merchant,
		MerchantLogo:           doc.MerchantLogo,
		OriginalPrice:          original,
		SalePrice:              sale,
		OriginalPriceEstimated: doc.OriginalPriceEstimated,
		DiscountPercentage:     doc.DiscountPercentage,
		CouponCode:             doc.CouponCode,
		AffiliateURL:           doc.AffiliateURL,
		SourceURL:              doc.SourceURL,
		Category:               models.Category(doc.Category),
		ImageURL:               doc.ImageURL,
		ValidFrom:              doc.ValidFrom,
		ValidUntil:             doc.ValidUntil,
		Source:                 doc.Source,
		Status:                 models.Status(doc.Status),
		CreatedAt:              doc.CreatedAt,
		IsActive:               doc.IsActive,
	}, nil
}

// editUpdates lists the field paths an edit rewrites. Provenance fields
// (source, createdAt) are never part of it.
func editUpdates(d models.Deal) []firestore.Update {
	doc := toDoc(d)
	return []firestore.Update{
		{Path: "title", Value: doc.Title},
		{Path: "description", Value: doc.Description},
		{Path: "merchant", Value: doc.Merchant},
		{Path: "merchantLogo", Value: doc.MerchantLogo},
		{Path: "originalPrice", Value: doc.OriginalPrice},
		{Path: "salePrice", Value: doc.SalePrice},
		{Path: "originalPriceEstimated", Value: doc.OriginalPriceEstimated},
		{Path: "discountPercentage", Value: doc.DiscountPercentage},
		{Path: "couponCode", Value: doc.CouponCode},
		{Path: "affiliateURL", Value: doc.AffiliateURL},
		{Path: "sourceURL", Value: doc.SourceURL},
		{Path: "category", Value: doc.Category},
		{Path: "imageURL", Value: doc.ImageURL},
		{Path: "validFrom", Value: doc.ValidFrom},
		{Path: "validUntil", Value: doc.ValidUntil},
		{Path: "status", Value: doc.Status},
		{Path: "isActive", Value: doc.IsActive},
	}
}

// FirestoreStore keeps deals in a Firestore collection keyed by deal id.
// Equality predicates run server side; validity, search, sorting and paging
// are applied in memory.
type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreStore connects to the project's default database.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, errors.New("firestore store requires GOOGLE_CLOUD_PROJECT")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreStore{client: client, now: time.Now}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) query(f models.Filter) firestore.Query {
	q := s.client.Collection(firestoreCollection).Query
	if f.HasCategory() {
		q = q.Where("category", "==", string(f.Category))
	}
	if f.ApprovedOnly {
		q = q.Where("status", "==", string(models.StatusApproved))
	}
	if f.ActiveOnly {
		q = q.Where("isActive", "==", true)
	}
	return q
}

func (s *FirestoreStore) List(ctx context.Context, f models.Filter) ([]models.Deal, error) {
	iter := s.query(f).Documents(ctx)
	defer iter.Stop()

	var deals []models.Deal
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate deals: %w", err)
		}
		var dd dealDoc
		if err := doc.DataTo(&dd); err != nil {
			return nil, fmt.Errorf("failed to unmarshal deal data: %w", err)
		}
		d, err := fromDoc(doc.Ref.ID, dd)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return Apply(deals, f, s.now()), nil
}

// Get retrieves a deal by its document id.
func (s *FirestoreStore) Get(ctx context.Context, id string) (models.Deal, error) {
	doc, err := s.client.Collection(firestoreCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.Deal{}, models.ErrDealNotFound
		}
		return models.Deal{}, fmt.Errorf("failed to get deal by ID %s: %w", id, err)
	}
	if !doc.Exists() {
		return models.Deal{}, models.ErrDealNotFound
	}
	var dd dealDoc
	if err := doc.DataTo(&dd); err != nil {
		return models.Deal{}, fmt.Errorf("failed to unmarshal deal data: %w", err)
	}
	return fromDoc(doc.Ref.ID, dd)
}

func (s *FirestoreStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, models.ErrDealNotFound) {
		return false, nil
	}
	return err == nil, err
}

// InsertAll creates one document per deal. Create fails for an existing
// document, which is how duplicates are skipped.
func (s *FirestoreStore) InsertAll(ctx context.Context, deals []models.Deal) (int, error) {
	if len(deals) == 0 {
		return 0, nil
	}
	collectionRef := s.client.Collection(firestoreCollection)
	bulkWriter := s.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(deals))
	for _, d := range deals {
		job, err := bulkWriter.Create(collectionRef.Doc(d.ID), toDoc(d))
		if err != nil {
			bulkWriter.End()
			return 0, fmt.Errorf("failed to queue deal %s: %w", d.ID, err)
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	added := 0
	var firstErr error
	for i, job := range jobs {
		_, err := job.Results()
		switch {
		case err == nil:
			added++
		case status.Code(err) == codes.AlreadyExists:
			slog.Debug("Deal already exists", "id", deals[i].ID)
		case firstErr == nil:
			firstErr = fmt.Errorf("failed to create deal %s: %w", deals[i].ID, err)
		}
	}
	return added, firstErr
}

// Update rewrites the editable fields of a deal.
func (s *FirestoreStore) Update(ctx context.Context, id string, d models.Deal) error {
	_, err := s.client.Collection(firestoreCollection).Doc(id).Update(ctx, editUpdates(d))
	if status.Code(err) == codes.NotFound {
		return models.ErrDealNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update deal %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	collectionRef := s.client.Collection(firestoreCollection)
	bulkWriter := s.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bulkWriter.Delete(collectionRef.Doc(id))
		if err != nil {
			slog.Warn("Error queueing delete", "id", id, "error", err)
			continue
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	deleted := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return deleted, fmt.Errorf("failed to delete deal: %w", err)
		}
		deleted++
	}
	slog.Info("Deleted deals", "count", deleted)
	return deleted, nil
}

// Count uses a server-side aggregation unless the filter needs in-memory
// predicates.
func (s *FirestoreStore) Count(ctx context.Context, f models.Filter) (int, error) {
	if f.ActiveOnly || f.Merchant != "" || f.Query != "" {
		f.Limit, f.Offset = 0, 0
		deals, err := s.List(ctx, f)
		return len(deals), err
	}
	q := s.query(f)
	countSnapshot, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get deal count: %w", err)
	}
	countValue, ok := countSnapshot["all"]
	if !ok {
		return 0, fmt.Errorf("count aggregation result was invalid: 'all' key missing")
	}
	n, err := aggregateCount(countValue)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func aggregateCount(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case *firestorepb.Value:
		return val.GetIntegerValue(), nil
	}
	return 0, fmt.Errorf("count aggregation result has unexpected type %T", v)
}
