package process

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Validate 检查定义内部的一致性，返回所有发现的问题。
//
// requireTemplate 为 true 时要求 upload_options.path_template 存在。
func (d *Definition) Validate(requireTemplate bool) error {
	var errs []error

	if len(d.MatchRules) > 0 && len(d.LegacyCollections) > 0 {
		errs = append(errs, configErrorf("collection_matchers",
			"cannot be combined with upload_options.collections"))
	}

	catchAll := 0
	for i, rule := range d.MatchRules {
		field := fmt.Sprintf("collection_matchers[%d]", i)
		if rule.CollectionName == "" {
			errs = append(errs, configErrorf(field+".collection_name", "is required"))
		}
		switch rule.Type {
		case MatcherCatchAll:
			catchAll++
		case MatcherJSONPath:
			if rule.Pattern == "" {
				errs = append(errs, configErrorf(field+".pattern", "is required for jsonpath matchers"))
			} else if _, err := compilePattern(field+".pattern", rule.Pattern); err != nil {
				errs = append(errs, err)
			}
		case "":
			errs = append(errs, configErrorf(field+".type", "is required"))
		default:
			errs = append(errs, configErrorf(field+".type", "unknown matcher type %q", rule.Type))
		}
	}
	if catchAll > 1 {
		errs = append(errs, configErrorf("collection_matchers", "at most one catch_all matcher is allowed, got %d", catchAll))
	}

	for _, lc := range d.LegacyCollections {
		field := "upload_options.collections." + lc.Name
		if lc.Name == "" {
			errs = append(errs, configErrorf("upload_options.collections", "collection name must not be empty"))
		}
		if _, err := compilePattern(field, lc.Pattern); err != nil {
			errs = append(errs, err)
		}
	}

	global, err := DecodeUploadOptions(d.UploadOptions)
	if err != nil {
		errs = append(errs, err)
	}
	if requireTemplate && global.PathTemplate == "" {
		errs = append(errs, configErrorf("upload_options.path_template", "is required when uploading"))
	}
	for _, name := range slices.Sorted(maps.Keys(d.CollectionOptions)) {
		if _, err := DecodeUploadOptions(d.CollectionOptions[name].UploadOptions); err != nil {
			errs = append(errs, &ConfigurationError{Field: "collection_options." + name, Err: err})
		}
	}

	return errors.Join(errs...)
}
