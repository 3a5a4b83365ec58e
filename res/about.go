// Package res holds static resources bundled with the player.
package res

// AboutContent contains the Markdown content for the About dialog.
const AboutContent = `A local music player built with Go and Fyne.

**Features:**
- Plays MP3, FLAC, Ogg Vorbis and WAV files from your music folders
- Picks up new files while running
- Now-playing notifications and media keys (MPRIS on Linux)
- Live spectrum visualizer over the album art
`
