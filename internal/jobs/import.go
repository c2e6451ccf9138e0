package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"gopkg.in/yaml.v3"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/utils"
	"github.com/fr4nk3nst1ner/jobluu/internal/validation"
)

const defaultImportWorkers = 4

// ImportOptions controls a bulk import
type ImportOptions struct {
	// Progress receives a progress bar when non-nil
	Progress io.Writer
	// Workers bounds concurrent posts. Zero means 4.
	Workers int
	// DryRun validates and de-duplicates without posting
	DryRun bool
}

// ImportFailure is a record that could not be imported
type ImportFailure struct {
	Index int
	Title string
	Err   error
}

// ImportResult summarises a bulk import
type ImportResult struct {
	Posted     []models.JobRecord
	Duplicates []models.JobRecord
	Failed     []ImportFailure
}

// LoadFile reads job records from a JSON or YAML file. The file holds
// either a list of jobs or a mapping with a "jobs" list.
func LoadFile(path string) ([]models.JobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []models.JobRecord
	if strings.EqualFold(filepath.Ext(path), ".json") {
		records, err = decodeJSONRecords(data)
	} else {
		records, err = decodeYAMLRecords(data)
	}
	if err != nil {
		return nil, apperror.NewValidation(map[string]string{"file": fmt.Sprintf("%s: %v", filepath.Base(path), err)})
	}
	return records, nil
}

func decodeJSONRecords(data []byte) ([]models.JobRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Jobs []models.JobRecord `json:"jobs"`
		}
		err := json.Unmarshal(data, &wrapped)
		return wrapped.Jobs, err
	}
	var records []models.JobRecord
	err := json.Unmarshal(data, &records)
	return records, err
}

func decodeYAMLRecords(data []byte) ([]models.JobRecord, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.MappingNode {
		var wrapped struct {
			Jobs []models.JobRecord `yaml:"jobs"`
		}
		err := doc.Decode(&wrapped)
		return wrapped.Jobs, err
	}
	var records []models.JobRecord
	err := doc.Decode(&records)
	return records, err
}

// Import posts records that are valid and not already on the backend.
// Duplicates are matched on normalised company and title, both against the
// backend's current jobs and within records itself. Individual failures are
// collected in the result; only a failure to list existing jobs aborts.
func (s *Service) Import(ctx context.Context, records []models.JobRecord, opts ImportOptions) (*ImportResult, error) {
	existing, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing)+len(records))
	for _, j := range existing {
		seen[utils.DedupKey(j.Company, j.Title)] = true
	}

	result := &ImportResult{}
	var pending []int
	for i, r := range records {
		if err := validation.Struct(r); err != nil {
			result.Failed = append(result.Failed, ImportFailure{Index: i, Title: r.Title, Err: err})
			continue
		}
		key := utils.DedupKey(r.Company, r.Title)
		if seen[key] {
			s.log.Debug("skipping duplicate job", s.log.Args("company", r.Company, "title", r.Title))
			result.Duplicates = append(result.Duplicates, r)
			continue
		}
		seen[key] = true
		pending = append(pending, i)
	}

	if opts.DryRun || len(pending) == 0 {
		for _, i := range pending {
			result.Posted = append(result.Posted, records[i])
		}
		return result, nil
	}

	bar := pb.New(len(pending))
	if opts.Progress != nil {
		bar.SetWriter(opts.Progress)
		bar.Start()
		defer bar.Finish()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultImportWorkers
	}
	semaphore := make(chan struct{}, workers)
	posted := make([]*models.JobRecord, len(pending))
	errs := make([]error, len(pending))

	var wg sync.WaitGroup
	for n, i := range pending {
		wg.Add(1)
		go func(n int, job models.JobRecord) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				bar.Increment()
			}()

			created, err := s.Post(ctx, job)
			if err != nil {
				errs[n] = err
				return
			}
			posted[n] = &created
		}(n, records[i])
	}
	wg.Wait()

	for n, i := range pending {
		if errs[n] != nil {
			result.Failed = append(result.Failed, ImportFailure{Index: i, Title: records[i].Title, Err: errs[n]})
			continue
		}
		result.Posted = append(result.Posted, *posted[n])
	}
	s.log.Info("import finished", s.log.Args(
		"posted", len(result.Posted),
		"duplicates", len(result.Duplicates),
		"failed", len(result.Failed),
	))
	return result, nil
}
