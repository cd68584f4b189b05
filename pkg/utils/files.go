package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gochip8/pkg/asm"
	"gochip8/pkg/rom"
)

// ErrOctoSource is returned for Octo (.8o) sources, whose syntax pkg/asm does not accept.
var ErrOctoSource = errors.New("octo sources are not supported; compile to a .ch8 image first")

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// IsSource reports whether path names an assembly source file.
func IsSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asm", ".s":
		return true
	}
	return false
}

// ReadProgram returns the program image at path, assembling it first when
// path is an assembly source. Anything else goes through rom.Load.
func ReadProgram(path string) ([]byte, error) {
	fullPath, _, err := GetPathInfo(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(fullPath), ".8o") {
		return nil, fmt.Errorf("%s: %w", filepath.Base(fullPath), ErrOctoSource)
	}

	if !IsSource(fullPath) {
		return rom.Load(fullPath)
	}

	source, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	program, _, err := asm.Assemble(string(source))
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", filepath.Base(fullPath), err)
	}
	if err := rom.Validate(program); err != nil {
		return nil, err
	}
	return program, nil
}

// OutputPath derives the image path written for an assembled source.
func OutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".ch8"
	}
	return strings.TrimSuffix(inPath, ext) + ".ch8"
}
