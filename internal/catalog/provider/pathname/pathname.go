// Package pathname turns media file paths into catalog items for sources
// that have no metadata server of their own. Paths are slash-separated and
// start with the library folder, for example
// "Movies/Dune (2021)/Dune (2021) 2160p.mkv".
package pathname

import (
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/quality"
)

var (
	episodePattern = regexp.MustCompile(`(?i)[\s._-]*s(\d{1,2})[\s._-]*e(\d{1,3})`)
	yearPattern    = regexp.MustCompile(`[\s._]*[\(\[]?((?:19|20)\d{2})[\)\]]?`)
	seasonDir      = regexp.MustCompile(`(?i)^(season|series|staffel)[\s._-]*\d+$|^s\d{1,2}$|^specials$`)
	separators     = strings.NewReplacer(".", " ", "_", " ")
	spaces         = regexp.MustCompile(`\s+`)
)

// Entry is one media file.
type Entry struct {
	// Rel is the path below the source root, library folder first.
	Rel string
	// Location is what the source uses to open the file (absolute path,
	// object key).
	Location string
	Size     int64
	Modified time.Time
}

// Group is the set of files that make up one catalog item.
type Group struct {
	ID          string
	Title       string
	Year        int
	Type        domain.MediaType
	SeriesTitle string
	Season      int
	Episode     int
	Entries     []Entry
}

// Modified is the newest modification time of the group's files.
func (g *Group) Modified() time.Time {
	var latest time.Time
	for _, e := range g.Entries {
		if e.Modified.After(latest) {
			latest = e.Modified
		}
	}
	return latest
}

// IsMedia reports whether name carries a media file extension.
func IsMedia(name string) bool {
	return quality.MediaExtensions[strings.ToLower(path.Ext(name))]
}

// Classify places a single file. Episodes are items on their own; movie
// files share an item with the other files of their folder so that
// several versions of a film collapse into one record.
func Classify(e Entry) *Group {
	rel := strings.TrimPrefix(e.Rel, "/")
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))

	if m := episodePattern.FindStringSubmatchIndex(base); m != nil {
		season, _ := strconv.Atoi(base[m[2]:m[3]])
		episode, _ := strconv.Atoi(base[m[4]:m[5]])
		series := seriesFromPath(rel)
		if series == "" {
			series, _ = SplitTitleYear(base[:m[0]])
		}
		title := cleanTitle(base[m[1]:])
		if title == "" {
			title = "Episode " + strconv.Itoa(episode)
		}
		return &Group{
			ID:          rel,
			Title:       title,
			Type:        domain.MediaTypeEpisode,
			SeriesTitle: series,
			Season:      season,
			Episode:     episode,
			Entries:     []Entry{e},
		}
	}

	dir := path.Dir(rel)
	// Files sitting directly in the library folder are items on their own.
	if !strings.Contains(dir, "/") {
		title, year := SplitTitleYear(base)
		return &Group{ID: rel, Title: title, Year: year, Type: domain.MediaTypeMovie, Entries: []Entry{e}}
	}

	title, year := SplitTitleYear(path.Base(dir))
	return &Group{ID: dir, Title: title, Year: year, Type: domain.MediaTypeMovie, Entries: []Entry{e}}
}

// Collect classifies entries and merges those that belong to the same
// item. Groups come back ordered by ID, files within a group by Rel.
func Collect(entries []Entry) []*Group {
	byID := make(map[string]*Group)
	for _, e := range entries {
		g := Classify(e)
		if existing, ok := byID[g.ID]; ok {
			existing.Entries = append(existing.Entries, e)
			continue
		}
		byID[g.ID] = g
	}

	groups := make([]*Group, 0, len(byID))
	for _, g := range byID {
		sort.Slice(g.Entries, func(i, j int) bool { return g.Entries[i].Rel < g.Entries[j].Rel })
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

// ModifiedAfter keeps the groups changed after since.
func ModifiedAfter(groups []*Group, since time.Time) []*Group {
	kept := make([]*Group, 0, len(groups))
	for _, g := range groups {
		if g.Modified().After(since) {
			kept = append(kept, g)
		}
	}
	return kept
}

// Metadata converts the group into adapter output. Only what the path and
// file listing reveal is filled in.
func (g *Group) Metadata() *domain.MediaMetadata {
	md := &domain.MediaMetadata{
		ProviderItemID: g.ID,
		Title:          g.Title,
		Type:           g.Type,
		Year:           g.Year,
		SeriesTitle:    g.SeriesTitle,
		SeasonNumber:   g.Season,
		EpisodeNumber:  g.Episode,
		ModifiedAt:     g.Modified(),
	}
	if g.Type == domain.MediaTypeEpisode {
		md.SeriesID = g.SeriesTitle
	}
	for _, e := range g.Entries {
		md.Sources = append(md.Sources, domain.SourceMetadata{
			ID:            e.Location,
			FilePath:      e.Location,
			FileSizeBytes: e.Size,
			Container:     strings.TrimPrefix(strings.ToLower(path.Ext(e.Rel)), "."),
		})
	}
	return md
}

// Page slices groups for offset paging.
func Page(groups []*Group, offset, limit int) (page []*Group, done bool) {
	total := len(groups)
	start := min(max(offset, 0), total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}
	return groups[start:end], end >= total
}

// seriesFromPath takes the show folder from library/Show/Season 1/file.
func seriesFromPath(rel string) string {
	parts := strings.Split(rel, "/")
	if len(parts) < 3 {
		return ""
	}
	dirs := parts[1 : len(parts)-1]
	for i := len(dirs) - 1; i >= 0; i-- {
		if !seasonDir.MatchString(dirs[i]) {
			title, _ := SplitTitleYear(dirs[i])
			return title
		}
	}
	return ""
}

// SplitTitleYear cuts "Dune (2021) 2160p" into "Dune" and 2021.
func SplitTitleYear(name string) (string, int) {
	// A year at position 0 is part of the title ("2001 A Space Odyssey").
	for _, loc := range yearPattern.FindAllStringSubmatchIndex(name, -1) {
		if loc[0] == 0 {
			continue
		}
		year, _ := strconv.Atoi(name[loc[2]:loc[3]])
		return cleanTitle(name[:loc[0]]), year
	}
	return cleanTitle(name), 0
}

func cleanTitle(s string) string {
	s = separators.Replace(s)
	s = strings.Trim(s, " -")
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}
