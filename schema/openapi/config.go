package openapi

import (
	"strings"
)

// generatorConfig splits what the generator reads into the document framing
// around the attribute object and the annotations placed on each attribute.
type generatorConfig struct {
	document   documentConfig
	attributes attributeConfig
}

type documentConfig struct {
	version     string
	title       string
	release     string
	description string
	path        string
	method      string
	operationID string
	summary     string
	contentType string
	root        string
	responses   map[string]response
}

type attributeConfig struct {
	hints        map[string]any
	extensionKey string
}

type response struct {
	description string
	body        bool
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		document: documentConfig{
			version:     "3.0.3",
			title:       "Attributes",
			release:     "1.0.0",
			path:        "/attributes",
			method:      "post",
			operationID: "post:/attributes",
			contentType: "application/json",
			responses:   map[string]response{"204": {description: "OK"}},
		},
		attributes: attributeConfig{extensionKey: "x-attributes"},
	}
}

// override replaces dst unless value is blank.
func override(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

// GeneratorOption configures the OpenAPI generator behaviour.
type GeneratorOption func(*generatorConfig)

// InfoOption refines the info section set by WithInfo.
type InfoOption func(*documentConfig)

// OperationOption refines the operation set by WithOperation.
type OperationOption func(*documentConfig)

// ResponseOption refines a response registered by WithResponse.
type ResponseOption func(*response)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) { override(&cfg.document.version, version) }
}

// WithInfo names the document. Blank arguments keep the current values.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		override(&cfg.document.title, title)
		override(&cfg.document.release, version)
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.document)
			}
		}
	}
}

func WithInfoDescription(description string) InfoOption {
	return func(doc *documentConfig) { doc.description = description }
}

// WithOperation sets the single operation that carries the attribute object.
// Blank arguments keep the defaults; the method is lowercased.
func WithOperation(path, method, operationID string, opts ...OperationOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		override(&cfg.document.path, path)
		override(&cfg.document.method, strings.ToLower(method))
		override(&cfg.document.operationID, operationID)
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.document)
			}
		}
	}
}

func WithOperationSummary(summary string) OperationOption {
	return func(doc *documentConfig) { doc.summary = summary }
}

// WithContentType sets the media type of the request body.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) { override(&cfg.document.contentType, contentType) }
}

// WithResponse adds or updates the response for status.
func WithResponse(status, description string, opts ...ResponseOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.document.responses == nil {
			cfg.document.responses = map[string]response{}
		}
		resp := cfg.document.responses[status]
		override(&resp.description, description)
		for _, opt := range opts {
			if opt != nil {
				opt(&resp)
			}
		}
		cfg.document.responses[status] = resp
	}
}

// WithResponseBody makes the response carry the attribute object as read
// back after the operation.
func WithResponseBody() ResponseOption {
	return func(resp *response) { resp.body = true }
}

// WithRootComponent publishes the attribute object under components/schemas
// with the given name, one component per nested attribute.
func WithRootComponent(name string) GeneratorOption {
	return func(cfg *generatorConfig) { cfg.document.root = strings.TrimSpace(name) }
}

// WithTypeHint types attribute name after sample. Attributes without a hint
// are typed from their default value, or left unconstrained.
func WithTypeHint(name string, sample any) GeneratorOption {
	return func(cfg *generatorConfig) {
		if cfg.attributes.hints == nil {
			cfg.attributes.hints = map[string]any{}
		}
		cfg.attributes.hints[name] = sample
	}
}

// WithExtensionKey renames the vendor extension carrying mode, flags and
// aliases (default: x-attributes). Keys must start with "x-".
func WithExtensionKey(key string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if strings.HasPrefix(key, "x-") {
			cfg.attributes.extensionKey = key
		}
	}
}
