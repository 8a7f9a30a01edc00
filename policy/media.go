package policy

import (
	"sort"
	"strings"
)

type Video struct {
	URL     string `yaml:"url"`
	Caption string `yaml:"caption"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// Static catalog behind the fun commands.
type Media struct {
	Memes       []string            `yaml:"memes"`
	MemeCaption string              `yaml:"meme_caption"`
	Videos      map[string][]Video  `yaml:"videos"`
	Emoji       map[string][]string `yaml:"emoji"`
}

func DefaultMedia() Media {
	return Media{
		Memes: []string{
			"https://i.imgflip.com/30b1gx.jpg",
			"https://i.imgflip.com/1bij.jpg",
			"https://i.imgflip.com/1g8my4.jpg",
			"https://i.imgflip.com/1otk96.jpg",
			"https://i.imgflip.com/261o3j.jpg",
			"https://i.imgflip.com/1c1uej.jpg",
			"https://i.imgflip.com/1h7in3.jpg",
			"https://i.imgflip.com/1e7ql7.jpg",
			"https://i.imgflip.com/1b42wb.jpg",
			"https://i.imgflip.com/1bim.jpg",
			"https://i.imgflip.com/1bhf.jpg",
			"https://i.imgflip.com/1bhk.jpg",
			"https://i.imgflip.com/1bh8.jpg",
			"https://i.imgflip.com/1bh1.jpg",
			"https://i.imgflip.com/1bh2.jpg",
		},
		MemeCaption: "Here's your meme! 😄",
		Videos: map[string][]Video{
			"360": {{
				URL:     "https://sample-videos.com/video123/mp4/360/big_buck_bunny_360p_5mb.mp4",
				Caption: "360p Sample (5MB)",
				Width:   640,
				Height:  360,
			}},
			"720": {{
				URL:     "https://sample-videos.com/video123/mp4/720/big_buck_bunny_720p_10mb.mp4",
				Caption: "720p HD Stream",
				Width:   1280,
				Height:  720,
			}},
			"1080": {{
				URL:     "https://sample-videos.com/video123/mp4/1080/big_buck_bunny_1080p_50mb.mp4",
				Caption: "1080p Full HD",
				Width:   1920,
				Height:  1080,
			}},
			"4k": {{
				URL:     "https://example.com/4k-sample.mp4",
				Caption: "4K Ultra HD Demo",
				Width:   3840,
				Height:  2160,
			}},
		},
		Emoji: map[string][]string{
			"faces":   {"😀", "😃", "😄", "😁", "😆", "😅", "😂", "🤣", "😊", "😇"},
			"animals": {"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼", "🐨", "🐯"},
			"food":    {"🍎", "🍐", "🍊", "🍋", "🍌", "🍉", "🍇", "🍓", "🍈", "🍒"},
			"objects": {"⌚", "📱", "💻", "⌨️", "🖥️", "🖨️", "🖱️", "🖲️", "🎮", "🎲"},
			"symbols": {"❤️", "🧡", "💛", "💚", "💙", "💜", "🖤", "🤍", "🤎", "💔"},
		},
	}
}

// Sorted quality names with at least one video.
func (m Media) Qualities() []string {
	var out []string
	for q, l := range m.Videos {
		if len(l) > 0 {
			out = append(out, q)
		}
	}
	sort.Strings(out)
	return out
}

func (m Media) Video(quality string, intn func(int) int) (Video, bool) {
	l := m.Videos[strings.ToLower(strings.TrimSpace(quality))]
	if len(l) == 0 {
		return Video{}, false
	}
	return l[intn(len(l))], true
}

func (m Media) Meme(intn func(int) int) (string, bool) {
	if len(m.Memes) == 0 {
		return "", false
	}
	return m.Memes[intn(len(m.Memes))], true
}

// Random emoji combination built from the catalog's categories.
func (m Media) EmojiCombo(intn func(int) int) string {
	pick := func(cat string) string {
		l := m.Emoji[cat]
		if len(l) == 0 {
			return "✨"
		}
		return l[intn(len(l))]
	}
	combos := []func() string{
		func() string { return pick("faces") + " " + pick("animals") },
		func() string { return pick("food") + " " + pick("objects") },
		func() string { return pick("faces") + " " + pick("food") + " " + pick("symbols") },
		func() string { return pick("animals") + " loves " + pick("food") },
		func() string { return pick("symbols") + " " + pick("objects") + " " + pick("faces") },
		func() string { return pick("animals") + " meets " + pick("animals") },
		func() string {
			return strings.Join([]string{pick("faces"), pick("animals"), pick("food"), pick("objects"), pick("symbols")}, " ")
		},
	}
	return combos[intn(len(combos))]()
}
