package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// AssetsDir is an extra asset root set from configuration (--assets).
var AssetsDir string

func assetRoots() []string {
	roots := []string{"assets"}
	if AssetsDir != "" {
		roots = append(roots, AssetsDir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		roots = append(roots, filepath.Join(dir, "duo-cards"))
	}
	return roots
}

// ResolveAssetPath returns the first existing location of relPath below the
// asset roots, or the local assets path when nothing matches.
func ResolveAssetPath(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	if _, err := os.Stat(relPath); err == nil {
		return relPath
	}

	for _, root := range assetRoots() {
		p := filepath.Join(root, relPath)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return filepath.Join("assets", relPath)
}

// FindAssetFile looks for name with any of the given extensions in dir below
// each asset root. The bare name is tried first when it already has one of them.
func FindAssetFile(dir, name string, extensions ...string) string {
	if name == "" {
		return ""
	}

	if _, err := os.Stat(name); err == nil {
		return name
	}

	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	for _, root := range assetRoots() {
		for _, want := range extensions {
			if ext == want {
				p := filepath.Join(root, dir, name)
				if _, err := os.Stat(p); err == nil {
					return p
				}
			}
			p := filepath.Join(root, dir, base+want)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	return ""
}

// FindFontFile resolves a font name or path to a TTF/OTF file.
func FindFontFile(name string) string {
	return FindAssetFile("fonts", name, ".ttf", ".otf")
}

// FindPatternFile resolves a card back artwork name or path.
func FindPatternFile(name string) string {
	return FindAssetFile("backs", name, ".tex", ".png", ".jpg", ".jpeg")
}
