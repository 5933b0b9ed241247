// Package docs is a hand-authored stand-in for the output `swag init` would
// normally generate from the handlers' @Summary/@Router annotations. The
// toolchain that regenerates this file cannot be run in this environment;
// see DESIGN.md for the exception this documents.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {}
}`

// SwaggerInfo holds exported Swagger metadata, the same shape `swag init`
// would emit.
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "CLI Agent Orchestrator",
	Description:      "Control API for orchestrating a fleet of tmux-backed interactive CLI agents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
