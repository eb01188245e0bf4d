package tray

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var errNoPicker = errors.New("no file dialog available")

// pickerCommand returns the dialog that prints the chosen wave file's path
// on stdout.
func pickerCommand(goos string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "osascript", []string{
			"-e", `POSIX path of (choose file with prompt "Choose a WAV file to transcribe" of type {"wav", "com.microsoft.waveform-audio"})`,
		}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "zenity", []string{
			"--file-selection",
			"--title=Choose a WAV file to transcribe",
			"--file-filter=WAV files | *.wav *.WAV",
		}, nil
	case "windows":
		return "powershell", []string{
			"-NoProfile", "-Command",
			"Add-Type -AssemblyName System.Windows.Forms; " +
				"$d = New-Object System.Windows.Forms.OpenFileDialog; " +
				"$d.Filter = 'WAV files (*.wav)|*.wav'; " +
				"if ($d.ShowDialog() -eq 'OK') { $d.FileName }",
		}, nil
	default:
		return "", nil, fmt.Errorf("%w on %s", errNoPicker, goos)
	}
}

// pickFile shows the platform file dialog. A dismissed dialog returns "".
func pickFile(goos string) (string, error) {
	name, args, err := pickerCommand(goos)
	if err != nil {
		return "", err
	}

	out, err := exec.Command(name, args...).Output()
	path := strings.TrimSpace(string(out))

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && path == "" {
		// osascript and zenity exit non-zero on Cancel
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return path, nil
}
