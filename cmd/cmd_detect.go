package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	app "roadwatch/internal/application"
	"roadwatch/internal/domain/entity"
)

var detectFlags struct {
	lat         float64
	lon         float64
	description string
	dryRun      bool
	asJSON      bool
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Run detection on a photo or video and save the report",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.Float64Var(&detectFlags.lat, "lat", 0, "Latitude of the capture point")
	f.Float64Var(&detectFlags.lon, "lon", 0, "Longitude of the capture point")
	f.StringVar(&detectFlags.description, "description", "", "Free-text report description")
	f.BoolVar(&detectFlags.dryRun, "dry-run", false, "Only run detection; do not save a report or credit the wallet")
	f.BoolVar(&detectFlags.asJSON, "json", false, "Print the result as JSON")

	detectCmd.MarkFlagsRequiredTogether("lat", "lon")
}

// detectSummary машиночитаемый вывод команды detect.
type detectSummary struct {
	Kind            entity.ArtifactKind      `json:"kind"`
	TotalDetections int                      `json:"total_detections"`
	Breakdown       entity.SeverityBreakdown `json:"severity_breakdown"`
	Detections      []entity.UniqueDetection `json:"detections"`
	FramesRead      int                      `json:"frames_read,omitempty"`
	FramesProcessed int                      `json:"frames_processed,omitempty"`
	ReportID        string                   `json:"report_id,omitempty"`
	Wallet          *int                     `json:"wallet,omitempty"`
	Message         string                   `json:"message,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	path := args[0]
	artifact := entity.Artifact{
		Kind: entity.KindFromFilename(path),
		Name: filepath.Base(path),
		Path: path,
	}

	c, err := openContainer()
	if err != nil {
		return err
	}
	defer c.Close()

	var (
		out        *app.SubmitResult
		persistErr error
	)
	if detectFlags.dryRun {
		res, err := c.Pipeline.Run(cmd.Context(), artifact)
		if err != nil {
			return err
		}
		out = &app.SubmitResult{Pipeline: res}
	} else {
		sub := app.Submission{Artifact: artifact, Description: detectFlags.description}
		if cmd.Flags().Changed("lat") {
			sub.Location = &entity.Location{Lat: detectFlags.lat, Lon: detectFlags.lon}
		}
		out, persistErr = c.ReportService.Submit(cmd.Context(), sub)
		if out == nil {
			return persistErr
		}
	}

	// Результат детекции печатается и тогда, когда отчёт записать не удалось.
	if detectFlags.asJSON {
		if err := writeJSON(cmd.OutOrStdout(), summarize(out)); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), out)
	}
	return persistErr
}

func summarize(out *app.SubmitResult) detectSummary {
	res := out.Pipeline
	s := detectSummary{
		Kind:            res.Kind,
		TotalDetections: res.TotalDetections,
		Breakdown:       res.Breakdown,
		Detections:      res.Detections,
		FramesRead:      res.FramesRead,
		FramesProcessed: res.FramesProcessed,
		Message:         out.Message,
	}
	if out.Report != nil {
		s.ReportID = out.Report.ID
	}
	if out.Persisted {
		wallet := out.Wallet
		s.Wallet = &wallet
	}
	return s
}

func printResult(w io.Writer, out *app.SubmitResult) {
	res := out.Pipeline
	fmt.Fprintf(w, "Kind:       %s\n", res.Kind)
	if res.Kind == entity.KindVideo {
		fmt.Fprintf(w, "Frames:     %d read, %d processed\n", res.FramesRead, res.FramesProcessed)
	}
	fmt.Fprintf(w, "Detections: %d\n", res.TotalDetections)
	for _, sev := range entity.Severities {
		fmt.Fprintf(w, "  %-9s %d\n", sev+":", res.Breakdown.Count(sev))
	}
	for i, d := range res.Detections {
		fmt.Fprintf(w, "  #%d %v conf=%.2f area=%d %s\n", i+1,
			[4]int{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2}, d.Confidence, d.Area, d.Severity)
	}
	if out.Message != "" {
		fmt.Fprintf(w, "Status:     %s\n", out.Message)
	}
	if out.Report != nil {
		fmt.Fprintf(w, "Report:     %s\n", out.Report.ID)
	}
	if out.Persisted {
		fmt.Fprintf(w, "Wallet:     %d\n", out.Wallet)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
