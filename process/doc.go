// Package process runs external command-line tools such as the whisperx
// CLI. Output is captured, stderr can be streamed line by line for progress
// logging, and cancellation terminates the whole process group.
package process
