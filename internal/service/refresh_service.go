package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mythic3011/AED-Api/internal/domain"
)

// DatasetFetcher retrieves the upstream CSV snapshot.
type DatasetFetcher interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

// HTTPFetcher downloads the dataset over HTTP with a bounded timeout.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset download failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("dataset download failed: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

type refreshService struct {
	queue   RefreshQueue
	fetcher DatasetFetcher
	repo    AedRepository
	cache   Cache
	logger  *slog.Logger
}

func NewRefreshService(
	queue RefreshQueue,
	fetcher DatasetFetcher,
	repo AedRepository,
	cache Cache,
	logger *slog.Logger,
) RefreshService {
	return &refreshService{
		queue:   queue,
		fetcher: fetcher,
		repo:    repo,
		cache:   cache,
		logger:  logger,
	}
}

// Enqueue hands a refresh job to the worker and returns immediately;
// the download itself never blocks an HTTP request.
func (s *refreshService) Enqueue(ctx context.Context, requestedBy string) (domain.RefreshJob, error) {
	job := domain.RefreshJob{
		ID:          uuid.NewString(),
		RequestedBy: requestedBy,
		EnqueuedAt:  time.Now().UTC().Unix(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.RefreshJob{}, err
	}
	s.logger.Info("refresh job enqueued",
		slog.String("job_id", job.ID),
		slog.String("requested_by", requestedBy),
	)
	return job, nil
}

// Run downloads, parses, and atomically swaps in the new dataset.
// Rows with unusable coordinates are skipped, not imported broken;
// rows that do not parse at all are counted as failed. The previous
// dataset survives any error before the final swap.
func (s *refreshService) Run(ctx context.Context, job domain.RefreshJob) (*domain.RefreshResult, error) {
	s.logger.Info("refresh job started", slog.String("job_id", job.ID))

	body, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.logger.Error("refresh fetch failed",
			slog.String("job_id", job.ID), slog.Any("error", err))
		return nil, err
	}
	defer func() { _ = body.Close() }()

	aeds, result, err := parseDataset(body)
	if err != nil {
		s.logger.Error("refresh parse failed",
			slog.String("job_id", job.ID), slog.Any("error", err))
		return nil, err
	}
	if len(aeds) == 0 {
		return nil, fmt.Errorf("refresh job %s: dataset contained no usable rows", job.ID)
	}

	imported, err := s.repo.ReplaceAll(ctx, aeds)
	if err != nil {
		return nil, err
	}
	result.Imported = imported

	s.cache.Invalidate(ctx, "aeds:", "stats:")

	s.logger.Info("refresh job finished",
		slog.String("job_id", job.ID),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

// headerCandidates maps each field to normalized header spellings seen
// across dataset revisions. Headers are matched after lowercasing and
// stripping everything but letters and digits.
var headerCandidates = map[string][]string{
	"name":              {"name", "aedname", "locationname", "premisesname"},
	"address":           {"address", "aedaddress", "location"},
	"location_detail":   {"locationdetail", "detailedlocation", "aedlocation", "floor"},
	"latitude":          {"latitude", "lat"},
	"longitude":         {"longitude", "lng", "long"},
	"public_use":        {"publicuse", "forpublicuse", "aedwhitelist"},
	"allowed_operators": {"allowedoperators", "personsallowedtooperate", "operator"},
	"access_persons":    {"accesspersons", "accessibleto", "personsaccess"},
	"category":          {"category", "locationcategory", "premisestype"},
	"service_hours":     {"servicehours", "servicehour", "openinghours"},
	"brand":             {"brand", "aedbrand"},
	"model":             {"model", "aedmodel"},
	"remark":            {"remark", "remarks"},
}

func normalizeHeader(h string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(h) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func mapColumns(header []string) map[string]int {
	cols := make(map[string]int, len(headerCandidates))
	for i, raw := range header {
		norm := normalizeHeader(raw)
		if norm == "" {
			continue
		}
		for field, candidates := range headerCandidates {
			if _, taken := cols[field]; taken {
				continue
			}
			for _, c := range candidates {
				if norm == c || strings.Contains(norm, c) {
					cols[field] = i
					break
				}
			}
		}
	}
	return cols
}

func parseDataset(r io.Reader) ([]domain.AED, *domain.RefreshResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset header: %w", err)
	}

	cols := mapColumns(header)
	for _, required := range []string{"name", "latitude", "longitude"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("dataset header missing %s column", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	result := &domain.RefreshResult{}
	var aeds []domain.AED

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Failed++
			continue
		}

		name := field(record, "name")
		if name == "" {
			result.Failed++
			continue
		}

		lat, latErr := strconv.ParseFloat(field(record, "latitude"), 64)
		lng, lngErr := strconv.ParseFloat(field(record, "longitude"), 64)
		if latErr != nil || lngErr != nil {
			result.Failed++
			continue
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			result.Skipped++
			continue
		}

		aeds = append(aeds, domain.AED{
			Name:             name,
			Address:          field(record, "address"),
			LocationDetail:   field(record, "location_detail"),
			Latitude:         lat,
			Longitude:        lng,
			PublicUse:        parseBoolish(field(record, "public_use")),
			AllowedOperators: field(record, "allowed_operators"),
			AccessPersons:    field(record, "access_persons"),
			Category:         field(record, "category"),
			ServiceHours:     field(record, "service_hours"),
			Brand:            field(record, "brand"),
			Model:            field(record, "model"),
			Remark:           field(record, "remark"),
		})
	}

	return aeds, result, nil
}

func parseBoolish(v string) bool {
	switch strings.ToLower(v) {
	case "y", "yes", "true", "1", "t":
		return true
	default:
		return false
	}
}
