// package formatter renders sync reports and library listings to text and CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/tasks"
)

// ReportToText renders a sync report as a human-readable summary.
func ReportToText(report tasks.SyncReport) []byte {
	var buf bytes.Buffer

	buf.WriteString("Sync Report\n")
	buf.WriteString("===========\n\n")

	if report.PurgedArtists > 0 || report.PurgedTracks > 0 {
		buf.WriteString(fmt.Sprintf("Purged: %d artists, %d tracks\n\n", report.PurgedArtists, report.PurgedTracks))
	}

	buf.WriteString(fmt.Sprintf("Artists: %d created, %d updated\n", report.ArtistsCreated, report.ArtistsUpdated))
	buf.WriteString(fmt.Sprintf("Tracks:  %d created, %d updated\n", report.TracksCreated, report.TracksUpdated))

	if report.HasErrors() {
		buf.WriteString("\nErrors:\n")
		for _, message := range report.Errors {
			buf.WriteString(fmt.Sprintf("  - %s\n", message))
		}
	}

	return buf.Bytes()
}

// ArtistsToCSV converts artists to CSV with columns: ProviderID, Name, Popularity, Genres, Top, Position.
func ArtistsToCSV(artists []models.Artist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ProviderID", "Name", "Popularity", "Genres", "Top", "Position"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, artist := range artists {
		record := []string{
			artist.ProviderID,
			artist.Name,
			strconv.Itoa(artist.Popularity),
			strings.Join(artist.Genres, ";"),
			strconv.FormatBool(artist.IsTop),
			positionString(artist.TopPosition),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TracksToCSV converts tracks to CSV with columns: ProviderID, Name, Artists, Popularity, Top, Position, Saved.
func TracksToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ProviderID", "Name", "Artists", "Popularity", "Top", "Position", "Saved"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		names := make([]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			names = append(names, artist.Name)
		}

		record := []string{
			track.ProviderID,
			track.Name,
			strings.Join(names, ";"),
			strconv.Itoa(track.Popularity),
			strconv.FormatBool(track.IsTop),
			positionString(track.TopPosition),
			strconv.FormatBool(track.IsSaved),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ArtistsToText converts artists to a numbered plain-text listing.
func ArtistsToText(artists []models.Artist) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Artists: %d\n\n", len(artists)))
	for i, artist := range artists {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, artist.Name))
		if len(artist.Genres) > 0 {
			buf.WriteString(fmt.Sprintf("   Genres: %s\n", strings.Join(artist.Genres, ", ")))
		}
		if artist.IsTop {
			buf.WriteString(fmt.Sprintf("   Rank: #%d\n", artist.TopPosition))
		}
	}

	return buf.Bytes()
}

// TracksToText converts tracks to a numbered plain-text listing.
func TracksToText(tracks []models.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))
	for i, track := range tracks {
		names := make([]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			names = append(names, artist.Name)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, strings.Join(names, ", "), track.Name))

		var flags []string
		if track.IsTop {
			flags = append(flags, fmt.Sprintf("top #%d", track.TopPosition))
		}
		if track.IsSaved {
			flags = append(flags, "saved")
		}
		if len(flags) > 0 {
			buf.WriteString(fmt.Sprintf("   [%s]\n", strings.Join(flags, ", ")))
		}
	}

	return buf.Bytes()
}

func positionString(position int) string {
	if position < 1 {
		return ""
	}
	return strconv.Itoa(position)
}
