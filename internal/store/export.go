package store

import "github.com/pavelanni/scangrade/internal/model"

// ExportAllRuns returns the full view of every stored run, newest first,
// for the export command.
func (s *Store) ExportAllRuns() ([]model.RunView, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	views := make([]model.RunView, 0, len(runs))
	for _, run := range runs {
		results, err := s.GetResults(run.ID)
		if err != nil {
			return nil, err
		}
		warnings, err := s.GetWarnings(run.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.RunView{Run: run, Results: results, Warnings: warnings})
	}
	return views, nil
}
