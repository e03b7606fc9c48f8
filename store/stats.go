package store

import (
	"context"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// UnspecifiedLabel replaces a missing group key (untyped books, books with no
// publisher) in stats breakdowns.
const UnspecifiedLabel = "unspecified"

const topListLimit = 10

type GeneralStats struct {
	TotalBooks int64   `json:"totalBooks"`
	AvgPages   float64 `json:"avgPages"`
	MinPages   int64   `json:"minPages"`
	MaxPages   int64   `json:"maxPages"`
	TotalPages int64   `json:"totalPages"`
}

type LanguageStat struct {
	Language string `bson:"_id" json:"language"`
	Count    int64  `bson:"count" json:"count"`
	// Percentage is only computed for the general stats view; a pointer keeps
	// a value that rounds to 0.00 in the response instead of dropping it.
	Percentage *float64 `bson:"-" json:"percentage,omitempty"`
}

type TypeStat struct {
	Type  string `bson:"_id" json:"type"`
	Count int64  `bson:"count" json:"count"`
}

type AuthorStat struct {
	Author     string `bson:"_id" json:"author"`
	BookCount  int64  `bson:"bookCount" json:"bookCount"`
	TotalPages int64  `bson:"totalPages" json:"totalPages"`
}

type PublisherStat struct {
	Publisher string `bson:"_id" json:"publisher"`
	BookCount int64  `bson:"bookCount" json:"bookCount"`
}

type YearStat struct {
	Year  int   `bson:"_id" json:"year"`
	Count int64 `bson:"count" json:"count"`
}

// BookStats is the full aggregate view over the book collection.
type BookStats struct {
	General          GeneralStats    `json:"general"`
	Languages        []LanguageStat  `json:"languages"`
	Types            []TypeStat      `json:"types"`
	TopAuthors       []AuthorStat    `json:"topAuthors"`
	TopPublishers    []PublisherStat `json:"topPublishers"`
	PublicationYears []YearStat      `json:"publicationYears"`
}

// LanguageStatsView scopes the general aggregate to one language and breaks
// the subset down by type.
type LanguageStatsView struct {
	Language         string       `json:"language"`
	General          GeneralStats `json:"general"`
	TypeDistribution []TypeStat   `json:"typeDistribution"`
}

// TypeStatsView scopes the general aggregate to one type and breaks the
// subset down by language.
type TypeStatsView struct {
	Type                 string         `json:"type"`
	General              GeneralStats   `json:"general"`
	LanguageDistribution []LanguageStat `json:"languageDistribution"`
}

// pageAggregate decodes the $group page-count stage; pointers absorb nulls
// from an empty collection or books without a page count.
type pageAggregate struct {
	AvgPages   *float64 `bson:"avgPages"`
	MinPages   *int64   `bson:"minPages"`
	MaxPages   *int64   `bson:"maxPages"`
	TotalPages *int64   `bson:"totalPages"`
}

var pageGroupStage = bson.D{{Key: "$group", Value: bson.D{
	{Key: "_id", Value: nil},
	{Key: "avgPages", Value: bson.D{{Key: "$avg", Value: "$pageNumber"}}},
	{Key: "minPages", Value: bson.D{{Key: "$min", Value: "$pageNumber"}}},
	{Key: "maxPages", Value: bson.D{{Key: "$max", Value: "$pageNumber"}}},
	{Key: "totalPages", Value: bson.D{{Key: "$sum", Value: "$pageNumber"}}},
}}}

// BookStats computes the general statistics view. The seven independent
// reads run concurrently.
func (db *DB) BookStats(ctx context.Context) (*BookStats, error) {
	stats := &BookStats{}
	var pages pageAggregate

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.General.TotalBooks, err = db.Books().CountDocuments(ctx, bson.M{})
		return err
	})
	g.Go(func() error {
		return db.aggregateOne(ctx, []bson.D{pageGroupStage}, &pages)
	})
	g.Go(func() error {
		return db.aggregateAll(ctx, countPipeline(nil, "$language"), &stats.Languages)
	})
	g.Go(func() error {
		return db.aggregateAll(ctx, countPipeline(nil, "$types"), &stats.Types)
	})
	g.Go(func() error {
		pipeline := []bson.D{
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$author"},
				{Key: "bookCount", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "totalPages", Value: bson.D{{Key: "$sum", Value: "$pageNumber"}}},
			}}},
			{{Key: "$sort", Value: bson.D{{Key: "bookCount", Value: -1}}}},
			{{Key: "$limit", Value: topListLimit}},
		}
		return db.aggregateAll(ctx, pipeline, &stats.TopAuthors)
	})
	g.Go(func() error {
		pipeline := []bson.D{
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$publisher"},
				{Key: "bookCount", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
			{{Key: "$sort", Value: bson.D{{Key: "bookCount", Value: -1}}}},
			{{Key: "$limit", Value: topListLimit}},
		}
		return db.aggregateAll(ctx, pipeline, &stats.TopPublishers)
	})
	g.Go(func() error {
		pipeline := []bson.D{
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: bson.D{{Key: "$year", Value: "$publishedDate"}}},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
			{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
		}
		return db.aggregateAll(ctx, pipeline, &stats.PublicationYears)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages.fill(&stats.General)
	for i := range stats.Languages {
		if stats.General.TotalBooks > 0 {
			percentage := round2(float64(stats.Languages[i].Count) / float64(stats.General.TotalBooks) * 100)
			stats.Languages[i].Percentage = &percentage
		}
	}
	for i := range stats.Types {
		if stats.Types[i].Type == "" {
			stats.Types[i].Type = UnspecifiedLabel
		}
	}
	for i := range stats.TopPublishers {
		if stats.TopPublishers[i].Publisher == "" {
			stats.TopPublishers[i].Publisher = UnspecifiedLabel
		}
	}
	return stats, nil
}

// StatsByLanguage scopes the aggregate to one language value.
func (db *DB) StatsByLanguage(ctx context.Context, language string) (*LanguageStatsView, error) {
	view := &LanguageStatsView{Language: language}
	match := bson.M{"language": language}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.scopedGeneral(ctx, match, &view.General)
	})
	g.Go(func() error {
		return db.aggregateAll(ctx, countPipeline(match, "$types"), &view.TypeDistribution)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range view.TypeDistribution {
		if view.TypeDistribution[i].Type == "" {
			view.TypeDistribution[i].Type = UnspecifiedLabel
		}
	}
	return view, nil
}

// StatsByType scopes the aggregate to one type value.
func (db *DB) StatsByType(ctx context.Context, bookType string) (*TypeStatsView, error) {
	view := &TypeStatsView{Type: bookType}
	match := bson.M{"types": bookType}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.scopedGeneral(ctx, match, &view.General)
	})
	g.Go(func() error {
		return db.aggregateAll(ctx, countPipeline(match, "$language"), &view.LanguageDistribution)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

// scopedAggregate decodes the scoped $group result. The page fields mirror
// pageAggregate but are spelled out flat: the driver skips inline embeds of
// unexported struct types, leaving them undecoded.
type scopedAggregate struct {
	TotalBooks int64    `bson:"totalBooks"`
	AvgPages   *float64 `bson:"avgPages"`
	MinPages   *int64   `bson:"minPages"`
	MaxPages   *int64   `bson:"maxPages"`
	TotalPages *int64   `bson:"totalPages"`
}

func (s scopedAggregate) fill(out *GeneralStats) {
	out.TotalBooks = s.TotalBooks
	pageAggregate{
		AvgPages:   s.AvgPages,
		MinPages:   s.MinPages,
		MaxPages:   s.MaxPages,
		TotalPages: s.TotalPages,
	}.fill(out)
}

// scopedGeneral computes the count and page aggregate over one matched
// subset, leaving zeroes when nothing matches.
func (db *DB) scopedGeneral(ctx context.Context, match bson.M, out *GeneralStats) error {
	var result scopedAggregate
	pipeline := []bson.D{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalBooks", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgPages", Value: bson.D{{Key: "$avg", Value: "$pageNumber"}}},
			{Key: "minPages", Value: bson.D{{Key: "$min", Value: "$pageNumber"}}},
			{Key: "maxPages", Value: bson.D{{Key: "$max", Value: "$pageNumber"}}},
			{Key: "totalPages", Value: bson.D{{Key: "$sum", Value: "$pageNumber"}}},
		}}},
	}
	if err := db.aggregateOne(ctx, pipeline, &result); err != nil {
		return err
	}
	result.fill(out)
	return nil
}

// countPipeline groups on key with an optional $match in front, sorted by
// descending count.
func countPipeline(match bson.M, key string) []bson.D {
	var pipeline []bson.D
	if match != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}
	return append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	)
}

// aggregateOne decodes the first result document into out; an empty result
// set leaves out untouched.
func (db *DB) aggregateOne(ctx context.Context, pipeline []bson.D, out any) error {
	cur, err := db.Books().Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		if err := cur.Decode(out); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (db *DB) aggregateAll(ctx context.Context, pipeline []bson.D, out any) error {
	cur, err := db.Books().Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

func (p pageAggregate) fill(out *GeneralStats) {
	if p.AvgPages != nil {
		out.AvgPages = round2(*p.AvgPages)
	}
	if p.MinPages != nil {
		out.MinPages = *p.MinPages
	}
	if p.MaxPages != nil {
		out.MaxPages = *p.MaxPages
	}
	if p.TotalPages != nil {
		out.TotalPages = *p.TotalPages
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
