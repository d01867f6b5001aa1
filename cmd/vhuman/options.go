package main

// Options is the root of the CLI. Struct tags are read by go-flags.
type Options struct {
	Config string `short:"f" long:"config" description:"settings YAML path or URL"`
	Debug  bool   `long:"debug" description:"debug logging and request logs"`

	Serve       *ServeCmd       `command:"serve" description:"Run the HTTP and WebSocket API"`
	MCPServe    *MCPServeCmd    `command:"mcp-serve" description:"Run only the MCP tool server"`
	Presets     *PresetsCmd     `command:"presets" description:"List avatar presets and custom avatars"`
	Blendshapes *BlendshapesCmd `command:"blendshapes" description:"List the supported ARKit blendshapes"`
	Analyze     *AnalyzeCmd     `command:"analyze" description:"Estimate the emotion of a WAV file"`
}

// Init instantiates the sub-command named by the first argument so go-flags
// can populate its fields.
func (o *Options) Init(firstArg string) {
	switch firstArg {
	case "serve":
		o.Serve = &ServeCmd{}
	case "mcp-serve":
		o.MCPServe = &MCPServeCmd{}
	case "presets":
		o.Presets = &PresetsCmd{}
	case "blendshapes":
		o.Blendshapes = &BlendshapesCmd{}
	case "analyze":
		o.Analyze = &AnalyzeCmd{}
	}
}
