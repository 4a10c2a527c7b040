package toolbox

import (
	"context"
	"fmt"

	"github.com/martinemde/sandchat/sandbox"
)

// RegisterSandboxTools registers the four sandbox tools on a Registry. The
// tools delegate to the provided sandbox session.
func RegisterSandboxTools(reg *Registry, session sandbox.Session) error {
	specs := []ToolSpec{
		readFileSpec(session),
		writeFileSpec(session),
		writeFilesSpec(session),
		runCommandsSpec(session),
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

type readFileArgs struct {
	Path string `mapstructure:"path"`
}

func readFileSpec(session sandbox.Session) ToolSpec {
	return ToolSpec{
		Name:        "read_file",
		Description: "Read contents of a file inside the sandbox",
		Parameters: NewSchema().
			AddParam("path", "string", "File path in the sandbox", true).
			Build(),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			var a readFileArgs
			if err := DecodeArgs(args, &a); err != nil {
				return "", err
			}
			if a.Path == "" {
				return "", fmt.Errorf("path is required")
			}
			return session.ReadFile(a.Path)
		},
	}
}

type writeFileArgs struct {
	Path string `mapstructure:"path"`
	Data string `mapstructure:"data"`
}

func writeFileSpec(session sandbox.Session) ToolSpec {
	return ToolSpec{
		Name:        "write_file",
		Description: "Write a single file inside the sandbox",
		Parameters: NewSchema().
			AddParam("path", "string", "File path in the sandbox", true).
			AddParam("data", "string", "Content to write", true).
			Build(),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			var a writeFileArgs
			if err := DecodeArgs(args, &a); err != nil {
				return "", err
			}
			if a.Path == "" {
				return "", fmt.Errorf("path is required")
			}
			if err := session.WriteFile(a.Path, a.Data); err != nil {
				return "", err
			}
			return fmt.Sprintf("File created successfully at %s", a.Path), nil
		},
	}
}

type writeFilesArgs struct {
	Files []sandbox.FileEntry `mapstructure:"files"`
}

func writeFilesSpec(session sandbox.Session) ToolSpec {
	return ToolSpec{
		Name:        "write_files",
		Description: "Write multiple files inside the sandbox",
		Parameters: NewSchema().
			AddArrayParam("files", "Files to write", map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string"},
					"data": map[string]any{"type": "string"},
				},
				"required": []string{"path", "data"},
			}, true).
			Build(),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			var a writeFilesArgs
			if err := DecodeArgs(args, &a); err != nil {
				return "", err
			}
			if len(a.Files) == 0 {
				return "", fmt.Errorf("files is required")
			}
			if err := session.WriteFiles(a.Files); err != nil {
				return "", err
			}
			return fmt.Sprintf("%d file(s) created successfully", len(a.Files)), nil
		},
	}
}

type runCommandsArgs struct {
	Command string `mapstructure:"command"`
}

func runCommandsSpec(session sandbox.Session) ToolSpec {
	return ToolSpec{
		Name:        "run_commands",
		Description: "Run a single shell command inside the sandbox working directory",
		Parameters: NewSchema().
			AddParam("command", "string", "The shell command to run, e.g. 'ls' or 'python main.py'", true).
			Build(),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			var a runCommandsArgs
			if err := DecodeArgs(args, &a); err != nil {
				return "", err
			}
			if a.Command == "" {
				return "", fmt.Errorf("command is required")
			}
			res, err := session.RunCommand(ctx, a.Command)
			if err != nil {
				return "", err
			}
			// Stdout is the payload regardless of exit code. Callers that
			// care about failure must read the output text.
			return res.Stdout, nil
		},
	}
}
