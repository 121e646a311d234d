// SPDX-License-Identifier: MPL-2.0

// Package clipboard writes the expanded source to the system clipboard.
//
// A Sink is either a clipboard helper program (pbcopy, wl-copy, xclip, xsel,
// clip.exe), the OSC 52 terminal escape sequence, or Discard.
package clipboard
