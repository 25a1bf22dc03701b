package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadwatch/internal/domain/entity"
)

var reportsFlags struct {
	near   string
	radius float64
	asJSON bool
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List saved reports, optionally near a point",
	RunE:  runReports,
}

func init() {
	f := reportsCmd.Flags()
	f.StringVar(&reportsFlags.near, "near", "", "Center point as lat,lon")
	f.Float64Var(&reportsFlags.radius, "radius", 1, "Search radius in km (with --near)")
	f.BoolVar(&reportsFlags.asJSON, "json", false, "Print reports as JSON")
}

func runReports(cmd *cobra.Command, _ []string) error {
	c, err := openContainer()
	if err != nil {
		return err
	}
	defer c.Close()

	var reports []entity.Report
	if reportsFlags.near != "" {
		center, err := parseLatLon(reportsFlags.near)
		if err != nil {
			return err
		}
		if reportsFlags.radius <= 0 {
			return fmt.Errorf("radius must be positive, got %v", reportsFlags.radius)
		}
		reports, err = c.ReportService.ReportsNear(cmd.Context(), center, reportsFlags.radius)
		if err != nil {
			return err
		}
	} else {
		reports, err = c.ReportService.Reports(cmd.Context())
		if err != nil {
			return err
		}
	}

	if reportsFlags.asJSON {
		if reports == nil {
			reports = []entity.Report{}
		}
		return writeJSON(cmd.OutOrStdout(), reports)
	}
	printReports(cmd.OutOrStdout(), reports)
	return nil
}

// parseLatLon разбирает "55.75,37.61".
func parseLatLon(s string) (entity.Location, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return entity.Location{}, fmt.Errorf("expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return entity.Location{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return entity.Location{}, fmt.Errorf("parse longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return entity.Location{}, fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
	}
	return entity.Location{Lat: lat, Lon: lon}, nil
}

func printReports(w io.Writer, reports []entity.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No reports")
		return
	}
	fmt.Fprintf(w, "%d report(s)\n", len(reports))
	for _, r := range reports {
		where := "-"
		if loc, ok := r.Location(); ok {
			where = fmt.Sprintf("%.5f,%.5f", loc.Lat, loc.Lon)
		}
		b := r.SeverityBreakdown
		fmt.Fprintf(w, "%s  %s  %s  total=%d minor=%d moderate=%d major=%d  %s\n",
			r.ID,
			time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339),
			where,
			r.TotalDetections, b.Minor, b.Moderate, b.Major,
			r.OriginalFile)
	}
}
