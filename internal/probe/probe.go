// Package probe inspects MP4 files without decoding them, reporting the
// container layout, video codec, dimensions, duration and audio presence.
// It only understands MP4; GStreamer may well play files probe rejects.
package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Info is what the container reveals about a media file.
type Info struct {
	// Path is the inspected file, empty when probing a plain reader
	Path string `json:"path,omitempty"`
	// Container is "mp4" or "fragmented mp4"
	Container string `json:"container"`
	// Brand is the ftyp major brand, for example "isom"
	Brand string `json:"brand,omitempty"`
	// VideoCodec is the normalized codec name (h264, hevc, av1, ...)
	VideoCodec string `json:"video_codec"`
	// Width in pixels
	Width int `json:"width"`
	// Height in pixels
	Height int `json:"height"`
	// DurationSeconds is the video track duration
	DurationSeconds float64 `json:"duration_seconds"`
	// FrameCount is the number of video samples
	FrameCount int `json:"frame_count"`
	// AvgFPS is FrameCount over DurationSeconds, 0 when unknown
	AvgFPS float64 `json:"avg_fps"`
	// HasAudio reports whether any audio track exists
	HasAudio bool `json:"has_audio"`
	// AudioCodec is the normalized audio codec name, empty when unknown
	AudioCodec string `json:"audio_codec,omitempty"`
}

// File inspects the MP4 at path.
func File(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	defer f.Close()

	info, err := Reader(f)
	if err != nil {
		return nil, err
	}
	info.Path = path
	return info, nil
}

// Reader inspects an MP4 from an io.ReadSeeker positioned at the start.
func Reader(r io.ReadSeeker) (*Info, error) {
	brand := sniffBrand(r)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("probe: seek: %w", err)
	}

	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("probe: not an MP4 file: %w", err)
	}

	info, err := inspect(f)
	if err != nil {
		return nil, err
	}
	info.Brand = brand
	return info, nil
}

// sniffBrand reads the ftyp major brand from the raw first box. Returns
// empty when the file does not start with an ftyp box.
func sniffBrand(r io.Reader) string {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return ""
	}
	if string(header[4:8]) != "ftyp" {
		return ""
	}
	return string(header[8:12])
}

func inspect(f *mp4.File) (*Info, error) {
	moov := f.Moov
	if f.Init != nil && f.Init.Moov != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("probe: no moov box found")
	}

	info := &Info{Container: "mp4"}
	if f.IsFragmented() {
		info.Container = "fragmented mp4"
	}

	var video *mp4.TrakBox
	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
			continue
		}
		switch trak.Mdia.Hdlr.HandlerType {
		case "vide":
			if video == nil {
				video = trak
			}
		case "soun":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = audioCodecName(sampleType(trak))
			}
		}
	}
	if video == nil {
		return nil, fmt.Errorf("probe: no video track found")
	}

	entryType, entry := visualEntry(video)
	info.VideoCodec = videoCodecName(entryType)

	if video.Tkhd != nil {
		info.Width = int(video.Tkhd.Width >> 16)
		info.Height = int(video.Tkhd.Height >> 16)
	}
	if (info.Width == 0 || info.Height == 0) && entry != nil {
		info.Width = int(entry.Width)
		info.Height = int(entry.Height)
	}

	var timescale uint32
	if video.Mdia.Mdhd != nil {
		timescale = video.Mdia.Mdhd.Timescale
	}

	if f.IsFragmented() {
		count, dur := fragmentedSamples(f, moov, video)
		info.FrameCount = count
		if timescale > 0 {
			info.DurationSeconds = float64(dur) / float64(timescale)
		}
	} else {
		if stbl := sampleTable(video); stbl != nil && stbl.Stsz != nil {
			info.FrameCount = int(stbl.Stsz.SampleNumber)
		}
		switch {
		case video.Mdia.Mdhd != nil && video.Mdia.Mdhd.Duration > 0 && timescale > 0:
			info.DurationSeconds = float64(video.Mdia.Mdhd.Duration) / float64(timescale)
		case moov.Mvhd != nil && moov.Mvhd.Duration > 0 && moov.Mvhd.Timescale > 0:
			info.DurationSeconds = float64(moov.Mvhd.Duration) / float64(moov.Mvhd.Timescale)
		}
	}

	if info.DurationSeconds > 0 {
		info.AvgFPS = float64(info.FrameCount) / info.DurationSeconds
	}
	return info, nil
}

// fragmentedSamples walks every fragment of the video track and returns
// the sample count and the summed duration in timescale units.
func fragmentedSamples(f *mp4.File, moov *mp4.MoovBox, video *mp4.TrakBox) (int, uint64) {
	if video.Tkhd == nil {
		return 0, 0
	}
	trackID := video.Tkhd.TrackID

	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var count int
	var total uint64
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					continue
				}
				count += len(samples)
				for _, s := range samples {
					total += uint64(s.Dur)
				}
			}
		}
	}
	return count, total
}

func sampleTable(trak *mp4.TrakBox) *mp4.StblBox {
	if trak.Mdia == nil || trak.Mdia.Minf == nil {
		return nil
	}
	return trak.Mdia.Minf.Stbl
}

// visualEntry returns the first sample description of the track and, when
// it is a visual entry, the box itself for its pixel dimensions.
func visualEntry(trak *mp4.TrakBox) (string, *mp4.VisualSampleEntryBox) {
	stbl := sampleTable(trak)
	if stbl == nil || stbl.Stsd == nil {
		return "", nil
	}
	for _, child := range stbl.Stsd.Children {
		if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
			return child.Type(), vse
		}
	}
	for _, child := range stbl.Stsd.Children {
		return child.Type(), nil
	}
	return "", nil
}

func sampleType(trak *mp4.TrakBox) string {
	stbl := sampleTable(trak)
	if stbl == nil || stbl.Stsd == nil {
		return ""
	}
	for _, child := range stbl.Stsd.Children {
		return child.Type()
	}
	return ""
}

// videoCodecName maps an stsd sample entry type to a familiar codec name.
// Unrecognized types pass through as the raw fourcc.
func videoCodecName(sampleType string) string {
	switch sampleType {
	case "avc1", "avc3":
		return "h264"
	case "hvc1", "hev1":
		return "hevc"
	case "av01":
		return "av1"
	case "vp09":
		return "vp9"
	case "":
		return "unknown"
	}
	return sampleType
}

func audioCodecName(sampleType string) string {
	switch sampleType {
	case "mp4a":
		return "aac"
	case "Opus":
		return "opus"
	case "ac-3":
		return "ac3"
	case "ec-3":
		return "eac3"
	case "fLaC":
		return "flac"
	}
	return sampleType
}
