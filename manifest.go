package layercfg

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// reservedRankKey may appear in a manifest settings object but is not a user
// setting.
const reservedRankKey = "layer_rank"

var manifestValidate = newManifestValidator()

func newManifestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// manifestHeader holds the identity fields of a manifest before they are
// converted into a Layer.
type manifestHeader struct {
	FileFormatVersion     string `json:"file_format_version" validate:"required"`
	Name                  string `json:"layer.name" validate:"required"`
	Kind                  string `json:"layer.type"`
	LibraryPath           string `json:"layer.library_path"`
	APIVersion            string `json:"layer.api_version" validate:"required"`
	ImplementationVersion string `json:"layer.implementation_version"`
	Description           string `json:"layer.description"`
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string, layerType LayerType) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapIO("read manifest", path, err)
	}
	return ParseManifest(data, path, layerType)
}

// ParseManifest converts manifest JSON into a Layer. path is recorded as the
// layer path and used in error messages.
func ParseManifest(data []byte, path string, layerType LayerType) (*Layer, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Path: path, Message: "invalid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ParseError{Path: path, Message: "manifest must be a JSON object"}
	}
	layerObject := root.Get("layer")
	if !layerObject.IsObject() {
		return nil, &ParseError{Path: path, Field: "layer", Message: "missing layer object"}
	}

	header := manifestHeader{
		FileFormatVersion:     root.Get("file_format_version").String(),
		Name:                  layerObject.Get("name").String(),
		Kind:                  layerObject.Get("type").String(),
		LibraryPath:           layerObject.Get("library_path").String(),
		APIVersion:            layerObject.Get("api_version").String(),
		ImplementationVersion: layerObject.Get("implementation_version").String(),
		Description:           layerObject.Get("description").String(),
	}
	if err := manifestValidate.Struct(header); err != nil {
		return nil, manifestFieldError(path, err)
	}

	layer := &Layer{
		Name:        header.Name,
		Type:        layerType,
		Kind:        header.Kind,
		Description: header.Description,
		LayerPath:   path,
		LibraryPath: header.LibraryPath,
	}

	var err error
	if layer.FileFormatVersion, err = ParseVersion(header.FileFormatVersion); err != nil {
		return nil, &ParseError{Path: path, Field: "file_format_version", Message: "invalid version", Err: err}
	}
	if layer.APIVersion, err = ParseVersion(header.APIVersion); err != nil {
		return nil, &ParseError{Path: path, Field: "layer.api_version", Message: "invalid version", Err: err}
	}
	if header.ImplementationVersion != "" {
		if layer.ImplementationVersion, err = ParseVersion(header.ImplementationVersion); err != nil {
			return nil, &ParseError{Path: path, Field: "layer.implementation_version", Message: "invalid version", Err: err}
		}
	}

	if settings := layerObject.Get("settings"); settings.Exists() {
		if !settings.IsObject() {
			return nil, &ParseError{Path: path, Field: "layer.settings", Message: "settings must be an object"}
		}
		layer.Settings, err = parseSettings(path, layer.Name, settings)
		if err != nil {
			return nil, err
		}
	}
	return layer, nil
}

// ParseSettings parses a manifest settings object. Settings are returned in
// declaration order, which is also their display order.
func ParseSettings(data []byte) ([]LayerSetting, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Field: "settings", Message: "invalid JSON"}
	}
	settings := gjson.ParseBytes(data)
	if !settings.IsObject() {
		return nil, &ParseError{Field: "settings", Message: "settings must be an object"}
	}
	return parseSettings("", "", settings)
}

func parseSettings(path, layerName string, object gjson.Result) ([]LayerSetting, error) {
	var (
		out      []LayerSetting
		parseErr error
	)
	object.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == reservedRankKey {
			return true
		}
		if !value.IsObject() {
			parseErr = &ParseError{Path: path, Field: "layer.settings." + name, Message: "setting must be an object"}
			return false
		}

		typeName := value.Get("type").String()
		settingType, ok := ParseSettingType(typeName)
		if !ok {
			parseErr = &SchemaError{Layer: layerName, Setting: name, Type: typeName}
			return false
		}

		setting := LayerSetting{
			Key:         name,
			Label:       value.Get("name").String(),
			Description: value.Get("description").String(),
			Type:        settingType,
			Value:       defaultValue(value.Get("default")),
		}
		if settingType.HasOptions() {
			value.Get("options").ForEach(func(optionKey, optionLabel gjson.Result) bool {
				setting.OptionValues = append(setting.OptionValues, optionKey.String())
				setting.OptionLabels = append(setting.OptionLabels, optionLabel.String())
				return true
			})
		}
		out = append(out, setting)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func defaultValue(value gjson.Result) string {
	if !value.Exists() {
		return ""
	}
	if !value.IsArray() {
		return value.String()
	}
	elements := value.Array()
	parts := make([]string, len(elements))
	for i, element := range elements {
		parts[i] = element.String()
	}
	return joinList(parts)
}

func manifestFieldError(path string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ParseError{Path: path, Message: "invalid manifest", Err: err}
	}
	first := fieldErrs[0]
	return &ParseError{
		Path:    path,
		Field:   first.Field(),
		Message: fmt.Sprintf("failed %q validation", first.Tag()),
		Err:     err,
	}
}
