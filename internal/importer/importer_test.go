package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/datastore"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/model"
	"github.com/lepinkainen/pricenest/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMovies struct {
	results map[string][]catalog.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeMovies) SearchMovies(_ context.Context, q catalog.MovieQuery) ([]catalog.Result, error) {
	f.calls = append(f.calls, q.Title)
	if err := f.errs[q.Title]; err != nil {
		return nil, err
	}
	return f.results[q.Title], nil
}

func movie(title, director string, year int, price float64) catalog.Result {
	return catalog.Result{
		Kind:        catalog.KindMovie,
		Title:       title,
		Director:    director,
		Year:        year,
		Name:        model.MovieDisplayName(title, year),
		Price:       price,
		Currency:    "GBP",
		PriceSource: model.PriceSourceApplePurchase,
		URL:         "https://itunes.apple.com/gb/movie/" + strings.ToLower(title),
		ExternalID:  "id-" + strings.ToLower(title),
	}
}

func newFakeMovies() *fakeMovies {
	return &fakeMovies{
		results: map[string][]catalog.Result{
			"Inception": {movie("Inception", "Christopher Nolan", 2010, 7.99)},
			"Heat":      {movie("Heat", "Michael Mann", 1995, 5.99)},
			"Alien":     {movie("Alien", "Ridley Scott", 1979, 4.99)},
		},
		errs: map[string]error{
			"Broken":    errors.New("boom"),
			"Throttled": pnerrors.NewRateLimitError("rate limited by itunes (status 403)"),
		},
	}
}

type fixture struct {
	store    *datastore.SQLStore
	movies   *fakeMovies
	importer *Importer
	category *model.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewTestStore(t)
	movies := newFakeMovies()
	category := testutil.CreateCategory(t, store, "Movies", model.CategoryMovies)
	return &fixture{
		store:    store,
		movies:   movies,
		importer: New(store, movies, nil, Config{MaxRetries: 2, BatchSize: 5}),
		category: category,
	}
}

const previewCSV = "title,director,year\n" +
	"Inception,Christopher Nolan,2010\n" +
	"Heat,Michael Mann,1995\n" +
	"Nothing Here,,\n" +
	",Nobody,2000\n" +
	"Broken,,abc\n" +
	"Throttled,,\n" +
	"After Throttle,,\n"

func (f *fixture) preview(t *testing.T, csv string) *Preview {
	t.Helper()
	p, err := f.importer.Preview(context.Background(), f.category.ID, "movies.csv", strings.NewReader(csv))
	require.NoError(t, err)
	return p
}

func assertSummaryBalanced(t *testing.T, s Summary) {
	t.Helper()
	assert.Equal(t, s.Total, s.Found+s.NotFound+s.Pending+s.Errors+s.Duplicates)
}

func TestPreviewClassifiesRows(t *testing.T) {
	f := newFixture(t)
	testutil.CreateItem(t, f.store, f.category.ID, model.Item{
		Name: "Inception (2010)", Title: "Inception", Director: "Christopher Nolan", Year: 2010, Price: 9.99,
	})

	p := f.preview(t, previewCSV)
	require.Len(t, p.Rows, 7)
	assert.NotEmpty(t, p.SessionID)

	statuses := make([]RowStatus, len(p.Rows))
	for i, r := range p.Rows {
		statuses[i] = r.Status
	}
	assert.Equal(t, []RowStatus{
		StatusDuplicate, StatusFound, StatusNotFound, StatusError, StatusError, StatusPending, StatusPending,
	}, statuses)

	dup := p.Rows[0]
	require.NotNil(t, dup.ExistingItem)
	assert.Equal(t, "Inception (2010)", dup.ExistingItem.Name)
	assert.Equal(t, "Same title and year (2010)", dup.DuplicateReason)

	assert.Equal(t, "Heat", p.Rows[1].BestMatch.Title)
	assert.Len(t, p.Rows[1].Candidates, 1)
	assert.Contains(t, p.Rows[3].Message, "missing title")
	assert.Contains(t, p.Rows[4].Message, "boom")
	assert.Contains(t, p.Rows[4].Message, `Ignored invalid year "abc"`)
	assert.NotZero(t, p.Rows[5].PendingID)
	assert.NotZero(t, p.Rows[6].PendingID)

	// the row after the throttled one is queued without another catalog call
	assert.Equal(t, []string{"Inception", "Heat", "Nothing Here", "Broken", "Throttled"}, f.movies.calls)

	assert.Equal(t, Summary{Total: 7, Found: 1, NotFound: 1, Pending: 2, Errors: 2, Duplicates: 1}, p.Summary)
	assertSummaryBalanced(t, p.Summary)

	pending, err := f.store.ListPendingSearches(context.Background(), model.PendingStatusPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Throttled", pending[0].Title)
	assert.Equal(t, "Throttled||", pending[0].CSVRowData)
}

func TestPreviewDuplicateByTitleAndDirector(t *testing.T) {
	f := newFixture(t)
	testutil.CreateItem(t, f.store, f.category.ID, model.Item{
		Name: "Inception", Title: "inception", Director: "Christopher Nolan", Price: 9.99,
	})

	p := f.preview(t, "title,director\nInception,Christopher Nolan\n")
	require.Len(t, p.Rows, 1)
	assert.Equal(t, StatusDuplicate, p.Rows[0].Status)
	assert.Equal(t, "Same title and director (Christopher Nolan)", p.Rows[0].DuplicateReason)
}

func TestPreviewReportsMalformedRecords(t *testing.T) {
	f := newFixture(t)

	p := f.preview(t, "title,year\n\"Bad\"x,2000\nInception,2010\n")
	require.Len(t, p.Rows, 2)

	assert.Equal(t, 0, p.Rows[0].Index)
	assert.Equal(t, StatusError, p.Rows[0].Status)
	assert.Contains(t, p.Rows[0].Message, "Row 1: malformed CSV record")
	assert.Equal(t, 1, p.Rows[1].Index)
	assert.Equal(t, StatusFound, p.Rows[1].Status)
	assert.Equal(t, Summary{Total: 2, Found: 1, Errors: 1}, p.Summary)
	assert.Equal(t, []string{"Inception"}, f.movies.calls)

	_, err := f.importer.Confirm(context.Background(), p.SessionID)
	var unresolved *UnresolvedRowsError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, 1, unresolved.Count)
}

func TestPreviewRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.importer.Preview(context.Background(), f.category.ID, "x.csv", strings.NewReader("name,year\nHeat,1995\n"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "title")

	books := testutil.CreateCategory(t, f.store, "Books", model.CategoryBooks)
	_, err = f.importer.Preview(context.Background(), books.ID, "x.csv", strings.NewReader("title\nHeat\n"))
	require.ErrorAs(t, err, &vErr)

	_, err = f.importer.Preview(context.Background(), 9999, "x.csv", strings.NewReader("title\nHeat\n"))
	assert.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestConfirmRejectsUnresolvedRows(t *testing.T) {
	f := newFixture(t)
	p := f.preview(t, "title\nHeat\nNothing Here\nBroken\n")

	_, err := f.importer.Confirm(context.Background(), p.SessionID)
	var unresolved *UnresolvedRowsError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, 2, unresolved.Count)

	items, err := f.store.ListItems(context.Background(), f.category.ID)
	require.NoError(t, err)
	assert.Empty(t, items, "nothing is committed when confirm is rejected")

	// the session survives a rejected confirm
	_, err = f.importer.Session(p.SessionID)
	require.NoError(t, err)
}

func TestConfirmImportsFoundAndOverriddenRows(t *testing.T) {
	f := newFixture(t)
	testutil.CreateItem(t, f.store, f.category.ID, model.Item{Name: "Heat", Title: "Heat", Director: "Michael Mann", Price: 9.99})

	// A found, B duplicate, C deleted, D not found
	p := f.preview(t, "title\nInception\nHeat\nAlien\nNothing Here\n")
	require.Equal(t, StatusDuplicate, p.Rows[1].Status)

	_, err := f.importer.OverrideDuplicate(p.SessionID, 1)
	require.NoError(t, err)
	_, err = f.importer.DeleteRow(p.SessionID, 2)
	require.NoError(t, err)
	p, err = f.importer.DeleteRow(p.SessionID, 3)
	require.NoError(t, err)

	assert.Equal(t, StatusFound, p.Rows[1].Status)
	assert.Equal(t, model.PriceSourceManualOverride, p.Rows[1].BestMatch.PriceSource)
	assert.Nil(t, p.Rows[1].ExistingItem)
	assert.Equal(t, Summary{Total: 2, Found: 2, Deleted: 2}, p.Summary)

	result, err := f.importer.Confirm(context.Background(), p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Inception (2010)", result.Items[0].Name)
	assert.Equal(t, "id-inception", result.Items[0].ExternalID)
	assert.Equal(t, "Heat (1995)", result.Items[1].Name)

	items, err := f.store.ListItems(context.Background(), f.category.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	_, err = f.importer.Session(p.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

type failingStore struct {
	datastore.Store
	failName string
}

func (s *failingStore) CreateItem(ctx context.Context, item *model.Item) error {
	if item.Name == s.failName {
		return errors.New("constraint violation")
	}
	return s.Store.CreateItem(ctx, item)
}

func TestConfirmRecordsPerRowFailures(t *testing.T) {
	f := newFixture(t)
	im := New(&failingStore{Store: f.store, failName: "Heat (1995)"}, f.movies, nil, Config{})

	p, err := im.Preview(context.Background(), f.category.ID, "x.csv", strings.NewReader("title\nHeat\nAlien\n"))
	require.NoError(t, err)

	result, err := im.Confirm(context.Background(), p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Row 1 (Heat): constraint violation")
}

func TestManualAddBypassesCatalog(t *testing.T) {
	f := newFixture(t)
	testutil.CreateItem(t, f.store, f.category.ID, model.Item{Name: "Obscure", Title: "Obscure", Price: 1})
	p := f.preview(t, "title\nNothing Here\n")

	price := 4.5
	p, err := f.importer.ManualAdd(p.SessionID, 0, ManualEntry{Title: "Obscure", Year: 1971, Price: &price})
	require.NoError(t, err)

	row := p.Rows[0]
	assert.Equal(t, StatusFound, row.Status)
	require.NotNil(t, row.BestMatch)
	assert.Equal(t, model.PriceSourceManualEntry, row.BestMatch.PriceSource)
	assert.Equal(t, "Unknown Director", row.BestMatch.Director)
	assert.Equal(t, "Obscure (1971)", row.BestMatch.Name)
	assert.Equal(t, "https://tv.apple.com/search?term=Obscure", row.BestMatch.URL)

	_, err = f.importer.ManualAdd(p.SessionID, 0, ManualEntry{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)

	negative := -1.0
	_, err = f.importer.ManualAdd(p.SessionID, 0, ManualEntry{Title: "x", Price: &negative})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.Field)
}

func TestOverrideOnlyAppliesToDuplicates(t *testing.T) {
	f := newFixture(t)
	p := f.preview(t, "title\nHeat\n")

	_, err := f.importer.OverrideDuplicate(p.SessionID, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.importer.OverrideDuplicate(p.SessionID, 5)
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestDeletedRowsCannotBeEdited(t *testing.T) {
	f := newFixture(t)
	p := f.preview(t, "title\nNothing Here\n")

	_, err := f.importer.DeleteRow(p.SessionID, 0)
	require.NoError(t, err)

	_, err = f.importer.ManualAdd(p.SessionID, 0, ManualEntry{Title: "Heat"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.importer.ManualSearch(context.Background(), p.SessionID, 0, "Heat", nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBulkDeleteIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	p := f.preview(t, "title\nHeat\nAlien\nInception\n")

	_, err := f.importer.BulkDelete(p.SessionID, []int{0, 7})
	assert.ErrorIs(t, err, ErrRowNotFound)

	p, err = f.importer.Session(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Summary.Total)

	p, err = f.importer.BulkDelete(p.SessionID, []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Summary.Total)
	assert.Equal(t, 2, p.Summary.Deleted)
	assert.True(t, p.Rows[0].Deleted)
	assert.Equal(t, StatusDeleted, p.Rows[2].Status)
	assertSummaryBalanced(t, p.Summary)
}

func TestManualSearch(t *testing.T) {
	f := newFixture(t)
	p := f.preview(t, "title\nNothing Here\n")

	outcome, err := f.importer.ManualSearch(context.Background(), p.SessionID, 0, "Nothing", nil)
	require.NoError(t, err)
	assert.False(t, outcome.Updated)
	assert.Contains(t, outcome.Message, "No Apple Store results")
	assert.Equal(t, StatusNotFound, outcome.Preview.Rows[0].Status)

	outcome, err = f.importer.ManualSearch(context.Background(), p.SessionID, 0, "Throttled", nil)
	require.NoError(t, err)
	assert.False(t, outcome.Updated)
	assert.Equal(t, StatusNotFound, outcome.Preview.Rows[0].Status)

	bad := 3
	_, err = f.importer.ManualSearch(context.Background(), p.SessionID, 0, "Heat", &bad)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	first := 0
	outcome, err = f.importer.ManualSearch(context.Background(), p.SessionID, 0, "Heat", &first)
	require.NoError(t, err)
	assert.True(t, outcome.Updated)
	row := outcome.Preview.Rows[0]
	assert.Equal(t, StatusFound, row.Status)
	assert.Equal(t, "Heat", row.BestMatch.Title)
	assert.Empty(t, row.Message)

	_, err = f.importer.ManualSearch(context.Background(), p.SessionID, 0, "  ", nil)
	require.ErrorAs(t, err, &vErr)
}

func TestManualSearchDetectsDuplicateMatch(t *testing.T) {
	f := newFixture(t)
	p := f.preview(t, "title\nNothing Here\n")
	testutil.CreateItem(t, f.store, f.category.ID, model.Item{Name: "Heat", Title: "Heat", Price: 1})

	outcome, err := f.importer.ManualSearch(context.Background(), p.SessionID, 0, "Heat", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Updated)
	assert.Equal(t, StatusDuplicate, outcome.Preview.Rows[0].Status)
}

func TestSelectCandidate(t *testing.T) {
	f := newFixture(t)
	f.movies.results["Dune"] = []catalog.Result{
		movie("Dune", "Denis Villeneuve", 2021, 9.99),
		movie("Dune", "David Lynch", 1984, 3.99),
	}
	p := f.preview(t, "title\nDune\nNothing Here\n")
	require.Equal(t, StatusFound, p.Rows[0].Status)
	require.Len(t, p.Rows[0].Candidates, 2)

	p, err := f.importer.SelectCandidate(context.Background(), p.SessionID, 0, 1)
	require.NoError(t, err)
	row := p.Rows[0]
	assert.Equal(t, StatusFound, row.Status)
	assert.Equal(t, "David Lynch", row.BestMatch.Director)
	assert.Len(t, row.Candidates, 2)

	var vErr *ValidationError
	_, err = f.importer.SelectCandidate(context.Background(), p.SessionID, 0, 2)
	require.ErrorAs(t, err, &vErr)

	_, err = f.importer.SelectCandidate(context.Background(), p.SessionID, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// no extra catalog traffic
	assert.Equal(t, []string{"Dune", "Nothing Here"}, f.movies.calls)
}

func TestConfirmCompletesResolvedPendingRows(t *testing.T) {
	f := newFixture(t)
	p := f.preview(t, "title\nThrottled\n")
	require.Equal(t, StatusPending, p.Rows[0].Status)

	_, err := f.importer.ManualAdd(p.SessionID, 0, ManualEntry{Title: "Throttled"})
	require.NoError(t, err)
	_, err = f.importer.Confirm(context.Background(), p.SessionID)
	require.NoError(t, err)

	completed, err := f.store.ListPendingSearches(context.Background(), model.PendingStatusCompleted, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestConfirmCancelsDeletedPendingRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.preview(t, "title\nHeat\nThrottled\n")
	require.Equal(t, StatusPending, p.Rows[1].Status)

	_, err := f.importer.DeleteRow(p.SessionID, 1)
	require.NoError(t, err)
	result, err := f.importer.Confirm(ctx, p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	// the catalog recovers, but the removed movie must stay out
	delete(f.movies.errs, "Throttled")
	f.movies.results["Throttled"] = []catalog.Result{movie("Throttled", "Nobody", 2001, 2.99)}

	processed, err := f.importer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &PendingResult{}, processed)

	items, err := f.store.ListItems(ctx, f.category.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Heat (1995)", items[0].Name)

	failed, err := f.importer.ListPending(ctx, model.PendingStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "Throttled", failed[0].Title)
}

func TestAddManualMovie(t *testing.T) {
	f := newFixture(t)

	item, err := f.importer.AddManualMovie(context.Background(), f.category.ID, ManualEntry{Title: "Stalker", Director: "Andrei Tarkovsky", Year: 1979})
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, "Stalker (1979)", item.Name)
	assert.Equal(t, 0.0, item.Price)
	assert.Equal(t, "https://tv.apple.com/search?term=Stalker", item.URL)
	assert.Empty(t, f.movies.calls)

	general := testutil.CreateCategory(t, f.store, "Stuff", model.CategoryGeneral)
	_, err = f.importer.AddManualMovie(context.Background(), general.ID, ManualEntry{Title: "Stalker"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestImportDirectStoresPlaceholders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.importer.ImportDirect(ctx, f.category.ID, "movies.csv",
		strings.NewReader("title,year\nHeat,1995\nNothing Here,2001\n,1999\nBroken,\n"), false)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Row 3: missing title")
	assert.Contains(t, result.Errors[1], "Row 4: search failed: boom")

	require.Len(t, result.Items, 2)
	assert.Equal(t, "Heat (1995)", result.Items[0].Name)
	assert.Equal(t, 5.99, result.Items[0].Price)

	placeholder := result.Items[1]
	assert.Equal(t, "Nothing Here (2001)", placeholder.Name)
	assert.Equal(t, PlaceholderPrice, placeholder.Price)
	assert.Equal(t, "Unknown Director", placeholder.Director)
	assert.Equal(t, "https://tv.apple.com/search?term=Nothing+Here", placeholder.URL)

	items, err := f.store.ListItems(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 0, f.importer.Sessions().Len(), "no preview session is created")
}

func TestImportDirectSkipsMissesAndStopsWhenThrottled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.importer.ImportDirect(ctx, f.category.ID, "movies.csv",
		strings.NewReader("title\nNothing Here\nThrottled\nAlien\n"), true)
	require.NoError(t, err)
	assert.Equal(t, &ConfirmResult{
		Total:  3,
		Failed: 3,
		Items:  []model.Item{},
		Errors: []string{
			`Row 1: No Apple Store results found for "Nothing Here"`,
			"Row 2: rate limited by itunes (status 403)",
			"Row 3: search skipped: rate limited by itunes (status 403)",
		},
	}, result)
	assert.Equal(t, []string{"Nothing Here", "Throttled"}, f.movies.calls)

	items, err := f.store.ListItems(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestImportDirectReportsDuplicates(t *testing.T) {
	f := newFixture(t)
	testutil.CreateItem(t, f.store, f.category.ID, model.Item{Name: "Heat (1995)", Title: "Heat", Year: 1995, Price: 9.99})

	result, err := f.importer.ImportDirect(context.Background(), f.category.ID, "movies.csv",
		strings.NewReader("title,year\nHeat,1995\nAlien,1979\nAlien,1979\n"), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{
		`Row 1: Already in category as "Heat (1995)"`,
		`Row 3: Already in category as "Alien (1979)"`,
	}, result.Errors)
}

func TestImportDirectRejectsEmptyFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.importer.ImportDirect(context.Background(), f.category.ID, "movies.csv", strings.NewReader("title\n"), true)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "file", vErr.Field)
}

func TestSessionsExpire(t *testing.T) {
	m := NewManager(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	s := m.add(1, "x.csv", nil)
	_, err := m.get(s.ID)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = m.get(s.ID)
	require.NoError(t, err, "access refreshes the idle timer")

	now = now.Add(2 * time.Minute)
	_, err = m.get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

func (f *fixture) queue(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		p := &model.PendingMovieSearch{CategoryID: f.category.ID, Title: title, CSVRowData: title + "||"}
		require.NoError(t, f.store.CreatePendingSearch(context.Background(), p))
	}
}

func TestProcessPendingImportsRetriesAndFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue(t, "Alien", "Ghost")

	result, err := f.importer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &PendingResult{Processed: 2, Imported: 1}, result)

	items, err := f.store.ListItems(ctx, f.category.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alien (1979)", items[0].Name)

	queued, err := f.importer.ListPending(ctx, model.PendingStatusPending)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "Ghost", queued[0].Title)
	assert.Equal(t, 1, queued[0].RetryCount)
	assert.NotNil(t, queued[0].LastAttempted)

	result, err = f.importer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &PendingResult{Processed: 1, Failed: 1}, result)

	failed, err := f.importer.ListPending(ctx, model.PendingStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].RetryCount)

	completed, err := f.importer.ListPending(ctx, model.PendingStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestProcessPendingSkipsMoviesAddedMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue(t, "Alien")
	testutil.CreateItem(t, f.store, f.category.ID, model.Item{Name: "Alien (1979)", Title: "Alien", Year: 1979, Price: 3.99})

	result, err := f.importer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &PendingResult{Processed: 1, Duplicates: 1}, result)

	items, err := f.store.ListItems(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	completed, err := f.importer.ListPending(ctx, model.PendingStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestProcessPendingStopsWhenThrottled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue(t, "Throttled", "Alien")

	result, err := f.importer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.True(t, result.Throttled)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, []string{"Throttled"}, f.movies.calls)

	queued, err := f.importer.ListPending(ctx, model.PendingStatusPending)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, 0, queued[0].RetryCount, "a throttled attempt is not a retry")
	assert.NotNil(t, queued[0].LastAttempted)
}

func TestProcessPendingHonoursBackoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.importer = New(f.store, f.movies, nil, Config{MaxRetries: 5, BaseBackoff: time.Hour})
	f.importer.now = func() time.Time { return now }
	f.queue(t, "Ghost")

	_, err := f.importer.ProcessPending(ctx)
	require.NoError(t, err)

	result, err := f.importer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, &PendingResult{Skipped: 1}, result)

	now = now.Add(61 * time.Minute)
	result, err = f.importer.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []string{"Ghost", "Ghost"}, f.movies.calls)
}
