package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/okian/taixiu/internal/adapters/provider"
	"github.com/okian/taixiu/internal/domain/ensemble"
	"github.com/okian/taixiu/internal/domain/history"
	"github.com/okian/taixiu/internal/domain/types"
	"github.com/spf13/cobra"
)

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the next session from a JSON history file",
		Long:  "Reads a session history (a file, or - for stdin), runs the ensemble once and prints the prediction as JSON.",
		RunE:  runPredict,
	}
	cmd.Flags().StringP("file", "f", "-", "History file, - reads stdin")
	cmd.Flags().String("path", "", "gjson path to the session array inside the document")
	cmd.Flags().Int64("seed", 0, "Seed for the supplementary voters, 0 uses system randomness")
	cmd.Flags().Int("voters", ensemble.DefaultSupplementaryVoters, "Number of supplementary voters")
	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	path, _ := cmd.Flags().GetString("path")
	seed, _ := cmd.Flags().GetInt64("seed")
	voters, _ := cmd.Flags().GetInt("voters")

	body, err := readInput(cmd.InOrStdin(), file)
	if err != nil {
		return err
	}

	decoded, err := provider.Decode(body, path)
	if err != nil {
		return err
	}
	h, err := history.Normalize(decoded.Sessions)
	if err != nil {
		return err
	}

	opts := []ensemble.Option{ensemble.WithSupplementaryVoters(voters)}
	if seed != 0 {
		opts = append(opts, ensemble.WithSeed(seed))
	}
	result := ensemble.New(opts...).PredictHistory(h)

	resp := types.NewPredictionResponse(uuid.NewString(), h, result, time.Now().UTC())
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "-" || file == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return b, nil
}
