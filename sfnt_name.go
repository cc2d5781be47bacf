package fonteco

import (
	"fmt"
	"sort"

	"github.com/tdewolff/parse/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// PlatformID is the platform identifier of a name or cmap record.
type PlatformID uint16

const (
	PlatformUnicode   PlatformID = 0
	PlatformMacintosh PlatformID = 1
	PlatformWindows   PlatformID = 3
)

// EncodingID is the platform specific encoding identifier of a name or cmap
// record.
type EncodingID uint16

const (
	EncodingMacintoshRoman EncodingID = 0
)

// NameID is the name identifier of a name record.
type NameID uint16

const (
	NameCopyrightNotice NameID = iota
	NameFontFamily
	NameFontSubfamily
	NameUniqueIdentifier
	NameFullFontName
	NameVersion
	NamePostScriptName
)

// fallbackFontName replaces name records that cannot be decoded when the font
// is renamed.
const fallbackFontName = "Eco Font"

type nameRecord struct {
	Platform PlatformID
	Encoding EncodingID
	Language uint16
	Name     NameID
	Value    []byte
}

func (record nameRecord) decoder() *encoding.Decoder {
	if record.Platform == PlatformUnicode || record.Platform == PlatformWindows {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	} else if record.Platform == PlatformMacintosh && record.Encoding == EncodingMacintoshRoman {
		return charmap.Macintosh.NewDecoder()
	}
	return nil
}

func (record nameRecord) encoder() *encoding.Encoder {
	if record.Platform == PlatformUnicode || record.Platform == PlatformWindows {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	} else if record.Platform == PlatformMacintosh && record.Encoding == EncodingMacintoshRoman {
		return encoding.ReplaceUnsupported(charmap.Macintosh.NewEncoder())
	}
	return nil
}

func (record nameRecord) String() string {
	decoder := record.decoder()
	if decoder == nil {
		return string(record.Value)
	}
	s, _, err := transform.String(decoder, string(record.Value))
	if err == nil {
		return s
	}
	return string(record.Value)
}

type nameLangTagRecord struct {
	Value []byte
}

type nameTable struct {
	NameRecord []nameRecord
	LangTag    []nameLangTagRecord
}

// Get returns all records with the given name ID.
func (name *nameTable) Get(id NameID) []nameRecord {
	records := []nameRecord{}
	for _, record := range name.NameRecord {
		if record.Name == id {
			records = append(records, record)
		}
	}
	return records
}

// AppendSuffix appends suffix to the font family and full font name records.
// Records that cannot be decoded are replaced by a fixed fallback name with
// the suffix appended.
func (name *nameTable) AppendSuffix(suffix string) {
	for i, record := range name.NameRecord {
		if record.Name != NameFontFamily && record.Name != NameFullFontName {
			continue
		}
		decoder, encoder := record.decoder(), record.encoder()
		if decoder == nil || encoder == nil {
			continue // unknown encoding, leave the record as is
		}
		value := fallbackFontName + suffix
		if s, _, err := transform.String(decoder, string(record.Value)); err == nil {
			value = s + suffix
		}
		if encoded, _, err := transform.String(encoder, value); err == nil {
			name.NameRecord[i].Value = []byte(encoded)
		} else {
			name.NameRecord[i].Value = []byte(value)
		}
	}
}

func (sfnt *SFNT) parseName() error {
	b := sfnt.Tables["name"]
	if len(b) < 6 {
		return fmt.Errorf("name: bad table")
	}

	sfnt.Name = &nameTable{}
	r := parse.NewBinaryReader(b)
	version := r.ReadUint16()
	if version != 0 && version != 1 {
		return fmt.Errorf("name: bad version")
	}
	count := r.ReadUint16()
	storageOffset := r.ReadUint16()
	if uint32(len(b)) < 6+12*uint32(count) || uint16(len(b)) < storageOffset {
		return fmt.Errorf("name: bad table")
	}
	sfnt.Name.NameRecord = make([]nameRecord, count)
	for i := 0; i < int(count); i++ {
		sfnt.Name.NameRecord[i].Platform = PlatformID(r.ReadUint16())
		sfnt.Name.NameRecord[i].Encoding = EncodingID(r.ReadUint16())
		sfnt.Name.NameRecord[i].Language = r.ReadUint16()
		sfnt.Name.NameRecord[i].Name = NameID(r.ReadUint16())

		length := r.ReadUint16()
		offset := r.ReadUint16()
		if uint16(len(b))-storageOffset < offset || uint16(len(b))-storageOffset-offset < length {
			return fmt.Errorf("name: bad table")
		}
		sfnt.Name.NameRecord[i].Value = b[storageOffset+offset : storageOffset+offset+length]
	}
	if version == 1 {
		if uint32(len(b)) < 6+12*uint32(count)+2 {
			return fmt.Errorf("name: bad table")
		}
		langTagCount := r.ReadUint16()
		if uint32(len(b)) < 6+12*uint32(count)+2+4*uint32(langTagCount) {
			return fmt.Errorf("name: bad table")
		}
		sfnt.Name.LangTag = make([]nameLangTagRecord, langTagCount)
		for i := 0; i < int(langTagCount); i++ {
			length := r.ReadUint16()
			offset := r.ReadUint16()
			if uint16(len(b))-storageOffset < offset || uint16(len(b))-storageOffset-offset < length {
				return fmt.Errorf("name: bad table")
			}
			sfnt.Name.LangTag[i].Value = b[storageOffset+offset : storageOffset+offset+length]
		}
	}
	if r.Pos() != uint32(storageOffset) {
		return fmt.Errorf("name: bad storageOffset")
	}
	return nil
}

// nameWrite serializes the name table. Records are written in the order the
// specification requires, sorted by platform, encoding, language and name ID.
func nameWrite(name *nameTable) []byte {
	records := make([]nameRecord, len(name.NameRecord))
	copy(records, name.NameRecord)
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Platform != records[j].Platform {
			return records[i].Platform < records[j].Platform
		} else if records[i].Encoding != records[j].Encoding {
			return records[i].Encoding < records[j].Encoding
		} else if records[i].Language != records[j].Language {
			return records[i].Language < records[j].Language
		}
		return records[i].Name < records[j].Name
	})

	version := uint16(0)
	headerLength := uint32(6) + 12*uint32(len(records))
	if 0 < len(name.LangTag) {
		version = 1
		headerLength += 2 + 4*uint32(len(name.LangTag))
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(version)
	w.WriteUint16(uint16(len(records)))
	w.WriteUint16(uint16(headerLength)) // storageOffset

	storage := parse.NewBinaryWriter([]byte{})
	for _, record := range records {
		w.WriteUint16(uint16(record.Platform))
		w.WriteUint16(uint16(record.Encoding))
		w.WriteUint16(record.Language)
		w.WriteUint16(uint16(record.Name))
		w.WriteUint16(uint16(len(record.Value)))
		w.WriteUint16(uint16(storage.Len()))
		storage.WriteBytes(record.Value)
	}
	if version == 1 {
		w.WriteUint16(uint16(len(name.LangTag)))
		for _, langTag := range name.LangTag {
			w.WriteUint16(uint16(len(langTag.Value)))
			w.WriteUint16(uint16(storage.Len()))
			storage.WriteBytes(langTag.Value)
		}
	}
	w.WriteBytes(storage.Bytes())
	return w.Bytes()
}

// AppendNameSuffix appends suffix to the font family and full font name
// records and rebuilds the name table.
func (sfnt *SFNT) AppendNameSuffix(suffix string) {
	sfnt.Name.AppendSuffix(suffix)
	sfnt.Tables["name"] = nameWrite(sfnt.Name)
}

// FontName returns the first decodable value of the given name ID, or an
// empty string when the font has none.
func (sfnt *SFNT) FontName(id NameID) string {
	for _, record := range sfnt.Name.Get(id) {
		if s := record.String(); s != "" {
			return s
		}
	}
	return ""
}
