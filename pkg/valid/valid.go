package valid

import (
	"os"
	"regexp"

	va "github.com/go-ozzo/ozzo-validation/v4"
)

//
// Errors

var (
	ErrExistingFile  = va.NewError("valid_is_existing_file", "file does not exist")
	ErrExistingDir   = va.NewError("valid_is_existing_dir", "directory does not exist")
	ErrRegexpPattern = va.NewError("valid_regexp", "must be a valid regular expression")
)

//
// Rules

var (
	ExistingFile  va.Rule = existingFileRule{}
	ExistingDir   va.Rule = existingDirRule{}
	RegexpPattern va.Rule = regexpPatternRule{}
)

type (
	existingFileRule  struct{}
	existingDirRule   struct{}
	regexpPatternRule struct{}
)

func (existingFileRule) Validate(value interface{}) error {
	path, _ := value.(string)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ErrExistingFile
	}
	return nil
}

func (existingDirRule) Validate(value interface{}) error {
	path, _ := value.(string)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return ErrExistingDir
	}
	return nil
}

func (regexpPatternRule) Validate(value interface{}) error {
	pattern, _ := value.(string)
	if pattern == "" {
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return ErrRegexpPattern
	}
	return nil
}

// OneOf builds an inclusion rule from string values.
func OneOf(values ...string) va.Rule {
	cast := make([]interface{}, len(values))
	for i := range values {
		cast[i] = values[i]
	}
	return va.In(cast...)
}
