// Package signature implements byte-pattern inspection of uploaded files:
// executable magic bytes, embedded script markers, and a filename extension
// denylist.
package signature

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Result reports whether a file passed signature inspection and, if not,
// a human-readable reason.
type Result struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// executableSignature pairs magic bytes with the format they identify.
type executableSignature struct {
	magic []byte
	name  string
}

// Signatures are matched at every offset, not just offset 0. A clean image
// must not contain an executable header anywhere; polyglot files hide them
// mid-file.
var executableSignatures = []executableSignature{
	{[]byte{0x4D, 0x5A}, "Windows executable (MZ)"},
	{[]byte{0x7F, 0x45, 0x4C, 0x46}, "ELF executable"},
	{[]byte{0xFE, 0xED, 0xFA, 0xCE}, "Mach-O executable (32-bit)"},
	{[]byte{0xFE, 0xED, 0xFA, 0xCF}, "Mach-O executable (64-bit)"},
	{[]byte{0xCE, 0xFA, 0xED, 0xFE}, "Mach-O executable (32-bit, little-endian)"},
	{[]byte{0xCF, 0xFA, 0xED, 0xFE}, "Mach-O executable (64-bit, little-endian)"},
	{[]byte{0xCA, 0xFE, 0xBA, 0xBE}, "Java class / Mach-O fat binary"},
}

// scriptMarkers are searched in the first 2 KB of the file decoded as text,
// lowercased. They catch script payloads smuggled under an innocent MIME type.
var scriptMarkers = []string{
	"<script",
	"<?php",
	"#!/bin/",
	"#!/usr/bin/",
	"javascript:",
	"vbscript:",
	"eval(",
	"base64_decode(",
	"document.write",
	"powershell",
	"cmd.exe",
}

// deniedExtensions are directly-executable filename extensions.
var deniedExtensions = map[string]struct{}{
	".exe": {}, ".dll": {}, ".bat": {}, ".cmd": {}, ".com": {}, ".scr": {},
	".pif": {}, ".msi": {}, ".jar": {}, ".app": {}, ".deb": {}, ".rpm": {},
	".sh": {}, ".bash": {}, ".ps1": {}, ".vbs": {}, ".js": {}, ".wsf": {},
	".hta": {}, ".cpl": {}, ".msc": {}, ".apk": {},
}

const textScanWindow = 2048

// Inspect checks file content and name against the three denylists in a
// fixed order and returns on the first hit. It is deterministic and has no
// side effects.
func Inspect(data []byte, fileName string) Result {
	for _, sig := range executableSignatures {
		if bytes.Contains(data, sig.magic) {
			return Result{
				Safe:   false,
				Reason: fmt.Sprintf("executable content detected: %s", sig.name),
			}
		}
	}

	window := data
	if len(window) > textScanWindow {
		window = window[:textScanWindow]
	}
	head := strings.ToLower(string(window))
	for _, marker := range scriptMarkers {
		if strings.Contains(head, marker) {
			return Result{
				Safe:   false,
				Reason: fmt.Sprintf("suspicious script content detected: %q", marker),
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if _, denied := deniedExtensions[ext]; denied {
		return Result{
			Safe:   false,
			Reason: fmt.Sprintf("executable file extension not allowed: %s", ext),
		}
	}

	return Result{Safe: true}
}
