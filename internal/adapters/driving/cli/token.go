package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var tokenBaseURL string

// readToken reads the token from the terminal. Replaced in tests.
var readToken = readPassword

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Store the Canvas API token",
	Long: `Prompts for a Canvas personal access token and stores it in the
configuration file. Generate one under Account > Settings > Approved
Integrations in Canvas. CANVAS_API_TOKEN takes precedence when set.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenBaseURL, "base-url", "", "Canvas root URL, e.g. https://school.instructure.com")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	ss, err := loadSettings()
	if err != nil {
		return err
	}

	if tokenBaseURL != "" {
		if err := ss.SetCanvasBaseURL(tokenBaseURL); err != nil {
			return err
		}
	}

	cmd.Print("Canvas API token: ")
	token, err := readToken(cmd.InOrStdin())
	cmd.Println()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if err := ss.SetCanvasToken(token); err != nil {
		return err
	}

	cmd.Printf("Token %s saved to %s\n", maskToken(token), ss.ConfigPath())
	return nil
}

// readPassword reads a line without echo when in is a terminal.
func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func maskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
