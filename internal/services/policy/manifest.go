package policy

import (
	"encoding/json"

	"github.com/ternarybob/webflux/internal/common"
	"github.com/ternarybob/webflux/internal/models"
)

// manifestPaths are probed in order when the HTML carried no
// <link rel="manifest"> reference
var manifestPaths = []string{
	"/manifest.json",
	"/manifest.webmanifest",
	"/app.webmanifest",
	"/site.webmanifest",
}

// rawManifest mirrors the manifest JSON shape loosely; unknown fields
// are ignored and member types are forgiving
type rawManifest struct {
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	Description     string `json:"description"`
	StartURL        string `json:"start_url"`
	Scope           string `json:"scope"`
	Display         string `json:"display"`
	Orientation     string `json:"orientation"`
	ThemeColor      string `json:"theme_color"`
	BackgroundColor string `json:"background_color"`
	Lang            string `json:"lang"`
	Dir             string `json:"dir"`
	Icons           []struct {
		Src   string `json:"src"`
		Sizes string `json:"sizes"`
		Type  string `json:"type"`
	} `json:"icons"`
	Screenshots []struct {
		Src   string `json:"src"`
		Sizes string `json:"sizes"`
		Type  string `json:"type"`
	} `json:"screenshots"`
	Categories []string `json:"categories"`
	Shortcuts  []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"shortcuts"`
	RelatedApplications []struct {
		Platform string `json:"platform"`
		URL      string `json:"url"`
		ID       string `json:"id"`
	} `json:"related_applications"`
	ShareTarget json.RawMessage `json:"share_target"`
}

// ParseManifest parses a web app manifest body, resolving relative URLs
// against the base. A malformed manifest returns nil; manifest data is
// best-effort metadata and never fails a crawl.
func ParseManifest(baseURL string, body []byte) *models.WebManifest {
	var raw rawManifest
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}

	m := &models.WebManifest{
		Name:            raw.Name,
		ShortName:       raw.ShortName,
		Description:     raw.Description,
		StartURL:        resolveIfSet(baseURL, raw.StartURL),
		Scope:           resolveIfSet(baseURL, raw.Scope),
		Display:         raw.Display,
		Orientation:     raw.Orientation,
		ThemeColor:      raw.ThemeColor,
		BackgroundColor: raw.BackgroundColor,
		Lang:            raw.Lang,
		Dir:             raw.Dir,
		Categories:      raw.Categories,
		HasShareTarget:  len(raw.ShareTarget) > 0,
	}

	for _, icon := range raw.Icons {
		if icon.Src == "" {
			continue
		}
		m.Icons = append(m.Icons, models.ManifestIcon{
			Src:   resolveIfSet(baseURL, icon.Src),
			Sizes: icon.Sizes,
			Type:  icon.Type,
		})
	}
	for _, shot := range raw.Screenshots {
		if shot.Src == "" {
			continue
		}
		m.Screenshots = append(m.Screenshots, models.ManifestIcon{
			Src:   resolveIfSet(baseURL, shot.Src),
			Sizes: shot.Sizes,
			Type:  shot.Type,
		})
	}
	for _, shortcut := range raw.Shortcuts {
		if shortcut.URL == "" {
			continue
		}
		m.Shortcuts = append(m.Shortcuts, models.ManifestShortcut{
			Name: shortcut.Name,
			URL:  resolveIfSet(baseURL, shortcut.URL),
		})
	}
	for _, app := range raw.RelatedApplications {
		if app.URL != "" {
			m.RelatedApplications = append(m.RelatedApplications, resolveIfSet(baseURL, app.URL))
		} else if app.ID != "" {
			m.RelatedApplications = append(m.RelatedApplications, app.ID)
		}
	}

	return m
}

func resolveIfSet(base, ref string) string {
	if ref == "" {
		return ""
	}
	if resolved := common.ResolveURL(base, ref); resolved != "" {
		return resolved
	}
	return ref
}
