// Package media acquires capture devices and turns them into payloads.
//
// Audio goes through an AudioRecorder that holds a Microphone exclusively
// between Begin and Release. Images come from an ImagePicker whose content is
// sniffed from magic bytes rather than trusted from a file extension.
package media
