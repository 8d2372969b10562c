package openapi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	layercfg "github.com/goliatone/go-layercfg"
)

type documentBuilder struct {
	config    generatorConfig
	layer     *layercfg.Layer
	component string
}

func newDocumentBuilder(config generatorConfig, layer *layercfg.Layer) *documentBuilder {
	component := sanitizeComponentName(layer.Name)
	if component == "" {
		component = "Settings"
	}
	return &documentBuilder{config: config, layer: layer, component: component}
}

func (b *documentBuilder) build(schema map[string]any) (map[string]any, error) {
	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(),
		"components": map[string]any{
			"schemas": map[string]any{
				b.component: schema,
			},
		},
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	title := b.config.info.Title
	if title == "" {
		title = b.layer.Name + " settings"
	}
	version := b.config.info.Version
	if version == "" {
		version = b.layer.ImplementationVersion.String()
	}
	info := map[string]any{
		"title":   title,
		"version": version,
	}
	description := b.config.info.Description
	if description == "" {
		description = b.layer.Description
	}
	if description != "" {
		info["description"] = description
	}
	return info
}

func (b *documentBuilder) path() string {
	return strings.ReplaceAll(b.config.operation.Path, "{layer}", b.layer.Name)
}

func (b *documentBuilder) buildPaths() map[string]any {
	method := b.method()
	responses := make(map[string]any, len(b.config.responses))
	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		responses[status] = map[string]any{
			"description": b.config.responses[status].Description,
		}
	}

	operation := map[string]any{
		"operationId": b.operationID(),
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				b.config.contentType: map[string]any{
					"schema": map[string]any{
						"$ref": "#/components/schemas/" + b.component,
					},
				},
			},
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(b.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}

	return map[string]any{
		b.path(): map[string]any{
			method: operation,
		},
	}
}

func (b *documentBuilder) method() string {
	method := strings.ToLower(b.config.operation.Method)
	if method == "" {
		method = "put"
	}
	return method
}

func (b *documentBuilder) operationID() string {
	if b.config.operation.OperationID != "" {
		return b.config.operation.OperationID
	}
	return fmt.Sprintf("%s:%s", b.method(), b.path())
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = strings.Trim(componentNameRegexp.ReplaceAllString(name, "_"), "_")
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	openapi, _ := document["openapi"].(string)
	if openapi == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
