//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}

int checkAccessibilityPermission() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import "fmt"

// CheckMicrophone returns the current microphone permission status
func CheckMicrophone() Status {
	return Status(C.checkMicrophonePermission())
}

// RequestMicrophone triggers the system microphone permission dialog
func RequestMicrophone() {
	C.requestMicrophonePermission()
}

// CheckAccessibility reports whether the app may register global hotkeys
// and post paste events. It shows the system prompt when it may not.
func CheckAccessibility() bool {
	return C.checkAccessibilityPermission() == 1
}

// EnsureMicrophone requests microphone access when it has not been granted.
func EnsureMicrophone() error {
	status := CheckMicrophone()
	switch status {
	case Authorized:
		return nil
	case NotDetermined:
		RequestMicrophone()
	}
	return fmt.Errorf("%w: microphone (%s)", ErrNotGranted, status)
}

// EnsureAccessibility checks the accessibility grant needed for hotkeys and paste.
func EnsureAccessibility() error {
	if CheckAccessibility() {
		return nil
	}
	return fmt.Errorf("%w: accessibility (System Settings → Privacy & Security → Accessibility)", ErrNotGranted)
}
