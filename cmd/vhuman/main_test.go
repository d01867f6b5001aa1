package main

import "testing"

func TestCommandName(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"serve"}, "serve"},
		{[]string{"-f", "vhuman.yaml", "serve", "-p", "9000"}, "serve"},
		{[]string{"--config", "s3://bucket/vhuman.yaml", "--debug", "mcp-serve"}, "mcp-serve"},
		{[]string{"--config=vhuman.yaml", "presets"}, "presets"},
		{[]string{"--debug"}, ""},
	}
	for _, tt := range tests {
		if got := commandName(tt.args); got != tt.want {
			t.Errorf("commandName(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestOptionsInit(t *testing.T) {
	o := &Options{}
	o.Init("analyze")
	if o.Analyze == nil {
		t.Fatal("analyze command not instantiated")
	}
	if o.Serve != nil || o.MCPServe != nil {
		t.Error("only the named command should be instantiated")
	}
}
