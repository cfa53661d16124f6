// version prints the pkgbot build flags and cuts release tags.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const versionVar = "github.com/contenox/pkgbot/apiframework.version"

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ldflags":
		version, err := describe()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ldflags(version))
	case "bump":
		if len(os.Args) < 3 {
			fmt.Println("Error: Must specify bump type (major, minor, patch)")
			os.Exit(1)
		}
		if err := bump(os.Args[2]); err != nil {
			fmt.Printf("Version bump failed: %v\n", err)
			os.Exit(1)
		}
	default:
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("Version management tool")
	fmt.Println("Usage:")
	fmt.Println("  version ldflags    - Print -ldflags for go build from git describe")
	fmt.Println("  version bump TYPE  - Tag the next release (major, minor, patch)")
}

func ldflags(version string) string {
	return fmt.Sprintf("-X %s=%s", versionVar, version)
}

func git(args ...string) (string, error) {
	out, err := exec.Command("git", args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

func describe() (string, error) {
	return git("describe", "--tags", "--always", "--dirty")
}

func latestTag() string {
	_ = exec.Command("git", "fetch", "--tags").Run() // offline is fine
	out, err := git("tag", "--sort=-v:refname")
	if err != nil || out == "" {
		return "v0.0.0"
	}
	return strings.SplitN(out, "\n", 2)[0]
}

// nextVersion increments a vMAJOR.MINOR.PATCH tag.
func nextVersion(current, bumpType string) (string, error) {
	tag, ok := strings.CutPrefix(current, "v")
	if !ok {
		return "", fmt.Errorf("invalid version format: missing 'v' prefix in '%s'", current)
	}
	parts := strings.Split(tag, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid version format: '%s' is not vMAJOR.MINOR.PATCH", current)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("invalid version part %q in '%s': %w", p, current, err)
		}
		nums[i] = n
	}
	switch bumpType {
	case "major":
		nums = [3]int{nums[0] + 1, 0, 0}
	case "minor":
		nums = [3]int{nums[0], nums[1] + 1, 0}
	case "patch":
		nums[2]++
	default:
		return "", fmt.Errorf("unknown bump type '%s'. Use 'major', 'minor', or 'patch'", bumpType)
	}
	return fmt.Sprintf("v%d.%d.%d", nums[0], nums[1], nums[2]), nil
}

func bump(bumpType string) error {
	if _, err := git("rev-parse", "--is-inside-work-tree"); err != nil {
		return fmt.Errorf("not in a git repository")
	}
	status, err := git("status", "--porcelain")
	if err != nil {
		return err
	}
	if status != "" {
		return fmt.Errorf("cannot create release with uncommitted changes. Please commit or stash your changes first")
	}
	current := latestTag()
	next, err := nextVersion(current, bumpType)
	if err != nil {
		return err
	}
	fmt.Printf("Current version: %s\nNew version: %s\n", current, next)
	if _, err := git("tag", "-a", next, "-m", "Release "+next); err != nil {
		return err
	}
	fmt.Printf("Release %s tagged. Push with: git push origin %s\n", next, next)
	fmt.Printf("Build with: go build -ldflags %q ./cmd/pkgbot\n", ldflags(next))
	return nil
}
