package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type PlayerConfig struct {
	ID        int
	Kind      string
	Name      string
	Model     string
	Search    bool
	Workers   int
	Budget    time.Duration
	Epsilon   float64
	Threshold float64
}

type GameRecord struct {
	ID int
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

// RoundSummary is the outcome of one self-play or evaluation round.
type RoundSummary struct {
	Round    int
	Games    int
	WinRates []float64
	Scores   []float64 // Mean score per player
}

type Writer struct {
	baseDir string
}

// NewWriter creates a subfolder of dir named by the current timestamp.
func NewWriter(dir string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(dir, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WritePlayerConfigs(configs []PlayerConfig) error {
	header := []string{"id", "kind", "name", "model", "search", "workers", "budget", "epsilon", "threshold"}
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			config.Kind,
			config.Name,
			config.Model,
			strconv.FormatBool(config.Search),
			strconv.Itoa(config.Workers),
			config.Budget.String(),
			formatFloat(config.Epsilon),
			formatFloat(config.Threshold),
		})
	}
	return w.write("player_configs.csv", header, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "starting_player", "winners", "scores", "start_time", "end_time", "duration", "moves"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.StartingPlayer),
			joinInts(record.Winners),
			joinFloats(record.Scores),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.TotalMoves),
		})
	}
	return w.write("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "region", "troops", "rerolled", "duration", "rollouts", "placements"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Player),
			strconv.Itoa(record.Region),
			strconv.Itoa(record.Troops),
			strconv.FormatBool(record.Rerolled),
			record.Duration.String(),
			strconv.Itoa(record.Rollouts),
			strconv.Itoa(record.Placements),
		})
	}
	return w.write("move_records.csv", header, rows)
}

// AppendRoundSummary adds a row to round_summary.csv, writing the header
// when the file is new.
func (w *Writer) AppendRoundSummary(s RoundSummary) error {
	path := filepath.Join(w.baseDir, "round_summary.csv")
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open round summary file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if os.IsNotExist(statErr) {
		if err := writer.Write([]string{"round", "games", "win_rates", "scores"}); err != nil {
			return fmt.Errorf("failed to write round summary header: %w", err)
		}
	}
	err = writer.Write([]string{
		strconv.Itoa(s.Round),
		strconv.Itoa(s.Games),
		joinFloats(s.WinRates),
		joinFloats(s.Scores),
	})
	if err != nil {
		return fmt.Errorf("failed to write round summary row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	err = writer.WriteAll(rows)
	if err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', 3, 64)
	}
	return strings.Join(parts, ";")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ";")
}
