package cli

import (
	_ "embed"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/filter"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
)

//go:embed talent.yaml
var defaultTalent []byte

// loadTalent reads talent profiles from path, or the bundled list when
// path is empty
func loadTalent(path string) ([]models.TalentRecord, error) {
	data := defaultTalent
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, apperror.NewConfig("cannot read talent file", err)
		}
	}
	var people []models.TalentRecord
	if err := yaml.Unmarshal(data, &people); err != nil {
		return nil, apperror.NewValidation(map[string]string{"file": "Talent file is not a YAML list of profiles: " + err.Error()})
	}
	return people, nil
}

func newTalentCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "talent",
		Short: "Search talent profiles",
	}
	cmd.AddCommand(newTalentListCommand(o))
	return cmd
}

func newTalentListCommand(o *rootOptions) *cobra.Command {
	var (
		search searchFlags
		file   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List talent matching a search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := search.spec(cmd, models.FilterSpec{})
			if err != nil {
				return err
			}
			key, err := search.sortKey("")
			if err != nil {
				return err
			}
			people, err := loadTalent(file)
			if err != nil {
				return err
			}
			ui.PrintTalent(cmd.OutOrStdout(), filter.Talent(people, spec, key))
			return nil
		},
	}

	search.register(cmd, false)
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file of talent profiles")
	return cmd
}
