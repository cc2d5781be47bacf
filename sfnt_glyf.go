package fonteco

import (
	"encoding/binary"
	"fmt"

	"github.com/tdewolff/parse/v2"
)

type locaTable struct {
	Format int16
	data   []byte
}

// Get returns the glyf table offset for the given glyph, the glyph data runs
// up to the offset of the next glyph ID.
func (loca *locaTable) Get(glyphID uint16) (uint32, bool) {
	if loca.Format == 0 {
		if len(loca.data) < 2*int(glyphID)+2 {
			return 0, false
		}
		return 2 * uint32(binary.BigEndian.Uint16(loca.data[2*int(glyphID):])), true
	}
	if len(loca.data) < 4*int(glyphID)+4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(loca.data[4*int(glyphID):]), true
}

func (sfnt *SFNT) parseLoca() error {
	b := sfnt.Tables["loca"]
	entrySize := uint32(2)
	if sfnt.Head.IndexToLocFormat == 1 {
		entrySize = 4
	}
	if uint32(len(b)) < entrySize*(uint32(sfnt.Maxp.NumGlyphs)+1) {
		return fmt.Errorf("loca: bad table")
	}
	sfnt.Loca = &locaTable{
		Format: sfnt.Head.IndexToLocFormat,
		data:   b,
	}
	return nil
}

type glyfTable struct {
	data []byte
	loca *locaTable
}

func (sfnt *SFNT) parseGlyf() error {
	b := sfnt.Tables["glyf"]
	sfnt.Glyf = &glyfTable{
		data: b,
		loca: sfnt.Loca,
	}
	if end, ok := sfnt.Loca.Get(sfnt.Maxp.NumGlyphs); !ok || uint32(len(b)) < end {
		return fmt.Errorf("glyf: bad table")
	}
	return nil
}

// Get returns the glyph data of the given glyph, which is empty for glyphs
// without an outline. It returns nil if the glyph does not exist.
func (glyf *glyfTable) Get(glyphID uint16) []byte {
	start, ok1 := glyf.loca.Get(glyphID)
	end, ok2 := glyf.loca.Get(glyphID + 1)
	if !ok1 || !ok2 || end < start || uint32(len(glyf.data)) < end {
		return nil
	}
	return glyf.data[start:end]
}

// IsComposite returns true if the glyph combines other glyphs.
func (glyf *glyfTable) IsComposite(glyphID uint16) bool {
	b := glyf.Get(glyphID)
	if len(b) == 0 {
		return false
	}
	return b[0]&0x80 != 0 // sign bit is set on numberOfContours
}

// Bounds returns the bounding box stored in the glyph header.
func (glyf *glyfTable) Bounds(glyphID uint16) (int16, int16, int16, int16, error) {
	b := glyf.Get(glyphID)
	if b == nil {
		return 0, 0, 0, 0, fmt.Errorf("glyf: bad glyphID %v", glyphID)
	} else if len(b) == 0 {
		return 0, 0, 0, 0, nil
	} else if len(b) < 10 {
		return 0, 0, 0, 0, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
	}
	xMin := int16(binary.BigEndian.Uint16(b[2:]))
	yMin := int16(binary.BigEndian.Uint16(b[4:]))
	xMax := int16(binary.BigEndian.Uint16(b[6:]))
	yMax := int16(binary.BigEndian.Uint16(b[8:]))
	return xMin, yMin, xMax, yMax, nil
}

// Dependencies returns the glyph and all glyph IDs it uses as a component,
// recursively.
func (glyf *glyfTable) Dependencies(glyphID uint16) ([]uint16, error) {
	return glyf.dependencies(glyphID, 0)
}

func (glyf *glyfTable) dependencies(glyphID uint16, level int) ([]uint16, error) {
	deps := []uint16{glyphID}
	b := glyf.Get(glyphID)
	if b == nil {
		return nil, fmt.Errorf("glyf: bad glyphID %v", glyphID)
	} else if len(b) == 0 {
		return deps, nil
	} else if len(b) < 10 {
		return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
	} else if b[0]&0x80 == 0 {
		return deps, nil
	} else if 7 < level {
		return nil, fmt.Errorf("glyf: composite glyphs too deeply nested")
	}

	offset := uint32(10)
	for {
		if uint32(len(b)) < offset+4 {
			return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
		}
		flags := binary.BigEndian.Uint16(b[offset:])
		subGlyphID := binary.BigEndian.Uint16(b[offset+2:])
		subDeps, err := glyf.dependencies(subGlyphID, level+1)
		if err != nil {
			return nil, err
		}
		deps = append(deps, subDeps...)

		length, more := glyfCompositeLength(flags)
		if uint32(len(b)) < offset+length {
			return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
		}
		offset += length
		if !more {
			break
		}
	}
	return deps, nil
}

// glyfCompositeLength returns the byte length of a composite glyph component
// and whether more components follow.
func glyfCompositeLength(flags uint16) (uint32, bool) {
	length := uint32(4 + 2)
	if flags&0x0001 != 0 { // ARG_1_AND_2_ARE_WORDS
		length += 2
	}
	if flags&0x0008 != 0 { // WE_HAVE_A_SCALE
		length += 2
	} else if flags&0x0040 != 0 { // WE_HAVE_AN_X_AND_Y_SCALE
		length += 4
	} else if flags&0x0080 != 0 { // WE_HAVE_A_TWO_BY_TWO
		length += 8
	}
	return length, flags&0x0020 != 0 // MORE_COMPONENTS
}

// updateCompositeGlyphIDs rewrites the component glyph IDs of a composite
// glyph record in-place through the given mapping.
func updateCompositeGlyphIDs(b []byte, glyphMap map[uint16]uint16) error {
	if len(b) == 0 || b[0]&0x80 == 0 {
		return nil
	} else if len(b) < 10 {
		return fmt.Errorf("glyf: bad glyph data")
	}
	offset := uint32(10)
	for {
		if uint32(len(b)) < offset+4 {
			return fmt.Errorf("glyf: bad glyph data")
		}
		flags := binary.BigEndian.Uint16(b[offset:])
		subGlyphID := binary.BigEndian.Uint16(b[offset+2:])
		newGlyphID, ok := glyphMap[subGlyphID]
		if !ok {
			return fmt.Errorf("glyf: composite component %v not in subset", subGlyphID)
		}
		binary.BigEndian.PutUint16(b[offset+2:], newGlyphID)

		length, more := glyfCompositeLength(flags)
		offset += length
		if !more {
			break
		}
	}
	return nil
}

// OutlinePoint is a point of a quadratic glyph outline in font units.
// Off-curve points are control points of quadratic curve segments.
type OutlinePoint struct {
	X, Y    int16
	OnCurve bool
}

// GlyphOutline is a glyph outline as a list of closed contours. Composite
// glyphs are flattened into plain contours.
type GlyphOutline struct {
	Contours [][]OutlinePoint
}

// NumPoints returns the total number of outline points.
func (outline *GlyphOutline) NumPoints() int {
	n := 0
	for _, contour := range outline.Contours {
		n += len(contour)
	}
	return n
}

// Decompose returns the outline of a glyph. Composite glyphs are expanded
// into their final shape, applying component offsets and transformations.
func (glyf *glyfTable) Decompose(glyphID uint16) (*GlyphOutline, error) {
	return glyf.decompose(glyphID, 0)
}

func (glyf *glyfTable) decompose(glyphID uint16, level int) (*GlyphOutline, error) {
	b := glyf.Get(glyphID)
	if b == nil {
		return nil, fmt.Errorf("glyf: bad glyphID %v", glyphID)
	}
	outline := &GlyphOutline{}
	if len(b) == 0 {
		return outline, nil
	} else if len(b) < 10 {
		return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
	}

	r := parse.NewBinaryReader(b)
	numberOfContours := r.ReadInt16()
	_ = r.ReadInt16() // xMin
	_ = r.ReadInt16() // yMin
	_ = r.ReadInt16() // xMax
	_ = r.ReadInt16() // yMax
	if numberOfContours < 0 {
		if 7 < level {
			return nil, fmt.Errorf("glyf: composite glyphs too deeply nested")
		}
		for {
			if r.Len() < 4 {
				return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
			}
			flags := r.ReadUint16()
			subGlyphID := r.ReadUint16()
			if flags&0x0002 == 0 { // ARGS_ARE_XY_VALUES
				return nil, fmt.Errorf("glyf: composite glyph with point alignment not supported")
			}
			var dx, dy int16
			if flags&0x0001 != 0 { // ARG_1_AND_2_ARE_WORDS
				if r.Len() < 4 {
					return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
				}
				dx = r.ReadInt16()
				dy = r.ReadInt16()
			} else {
				if r.Len() < 2 {
					return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
				}
				dx = int16(r.ReadInt8())
				dy = int16(r.ReadInt8())
			}
			var txx, txy, tyx, tyy int16
			if flags&0x0008 != 0 { // WE_HAVE_A_SCALE
				if r.Len() < 2 {
					return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
				}
				txx = r.ReadInt16()
				tyy = txx
			} else if flags&0x0040 != 0 { // WE_HAVE_AN_X_AND_Y_SCALE
				if r.Len() < 4 {
					return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
				}
				txx = r.ReadInt16()
				tyy = r.ReadInt16()
			} else if flags&0x0080 != 0 { // WE_HAVE_A_TWO_BY_TWO
				if r.Len() < 8 {
					return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
				}
				txx = r.ReadInt16()
				txy = r.ReadInt16()
				tyx = r.ReadInt16()
				tyy = r.ReadInt16()
			}

			sub, err := glyf.decompose(subGlyphID, level+1)
			if err != nil {
				return nil, err
			}
			for _, contour := range sub.Contours {
				points := make([]OutlinePoint, len(contour))
				for i, p := range contour {
					x, y := p.X, p.Y
					if flags&0x00C8 != 0 { // has transformation, in F2Dot14
						const half = 1 << 13
						xt := int16((int64(x)*int64(txx)+half)>>14) + int16((int64(y)*int64(tyx)+half)>>14)
						yt := int16((int64(x)*int64(txy)+half)>>14) + int16((int64(y)*int64(tyy)+half)>>14)
						x, y = xt, yt
					}
					points[i] = OutlinePoint{dx + x, dy + y, p.OnCurve}
				}
				outline.Contours = append(outline.Contours, points)
			}
			if flags&0x0020 == 0 { // MORE_COMPONENTS
				break
			}
		}
		return outline, nil
	}

	// simple glyph
	if r.Len() < 2*uint32(numberOfContours)+2 {
		return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
	}
	endPoints := make([]uint16, numberOfContours)
	for i := range endPoints {
		endPoints[i] = r.ReadUint16()
	}
	numPoints := 0
	if 0 < len(endPoints) {
		numPoints = int(endPoints[len(endPoints)-1]) + 1
	}

	instructionLength := r.ReadUint16()
	if r.Len() < uint32(instructionLength) {
		return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
	}
	_ = r.ReadBytes(uint32(instructionLength))

	flags := make([]uint8, numPoints)
	for i := 0; i < numPoints; {
		if r.Len() < 1 {
			return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
		}
		flag := r.ReadUint8()
		flags[i] = flag
		i++
		if flag&flagRepeat != 0 {
			if r.Len() < 1 {
				return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
			}
			repeats := int(r.ReadUint8())
			for j := 0; j < repeats && i < numPoints; j++ {
				flags[i] = flag
				i++
			}
		}
	}

	xs := make([]int16, numPoints)
	var x int16
	for i, flag := range flags {
		if flag&flagXShortVector != 0 {
			if r.Len() < 1 {
				return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
			}
			if flag&flagXSameOrPositive != 0 {
				x += int16(r.ReadUint8())
			} else {
				x -= int16(r.ReadUint8())
			}
		} else if flag&flagXSameOrPositive == 0 {
			if r.Len() < 2 {
				return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
			}
			x += r.ReadInt16()
		}
		xs[i] = x
	}

	ys := make([]int16, numPoints)
	var y int16
	for i, flag := range flags {
		if flag&flagYShortVector != 0 {
			if r.Len() < 1 {
				return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
			}
			if flag&flagYSameOrPositive != 0 {
				y += int16(r.ReadUint8())
			} else {
				y -= int16(r.ReadUint8())
			}
		} else if flag&flagYSameOrPositive == 0 {
			if r.Len() < 2 {
				return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
			}
			y += r.ReadInt16()
		}
		ys[i] = y
	}

	start := 0
	for _, end := range endPoints {
		if numPoints <= int(end) || int(end) < start {
			return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
		}
		contour := make([]OutlinePoint, 0, int(end)+1-start)
		for i := start; i <= int(end); i++ {
			contour = append(contour, OutlinePoint{xs[i], ys[i], flags[i]&flagOnCurve != 0})
		}
		outline.Contours = append(outline.Contours, contour)
		start = int(end) + 1
	}
	return outline, nil
}

const (
	flagOnCurve         = 0x01
	flagXShortVector    = 0x02
	flagYShortVector    = 0x04
	flagRepeat          = 0x08
	flagXSameOrPositive = 0x10
	flagYSameOrPositive = 0x20
)

// encodeGlyphOutline serializes an outline into a glyf record with delta
// encoded coordinates and repeat compressed flags. Empty contours are
// dropped, an outline without contours yields an empty record.
func encodeGlyphOutline(outline *GlyphOutline) ([]byte, error) {
	contours := outline.Contours[:0:0]
	for _, contour := range outline.Contours {
		if 0 < len(contour) {
			contours = append(contours, contour)
		}
	}
	if len(contours) == 0 {
		return []byte{}, nil
	} else if 32767 < len(contours) {
		return nil, fmt.Errorf("glyf: too many contours (%d)", len(contours))
	}

	numPoints := 0
	for _, contour := range contours {
		numPoints += len(contour)
	}
	if 65535 < numPoints {
		return nil, fmt.Errorf("glyf: too many outline points (%d)", numPoints)
	}

	xMin, yMin := contours[0][0].X, contours[0][0].Y
	xMax, yMax := xMin, yMin
	for _, contour := range contours {
		for _, p := range contour {
			if p.X < xMin {
				xMin = p.X
			} else if xMax < p.X {
				xMax = p.X
			}
			if p.Y < yMin {
				yMin = p.Y
			} else if yMax < p.Y {
				yMax = p.Y
			}
		}
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteInt16(int16(len(contours)))
	w.WriteInt16(xMin)
	w.WriteInt16(yMin)
	w.WriteInt16(xMax)
	w.WriteInt16(yMax)
	end := -1
	for _, contour := range contours {
		end += len(contour)
		w.WriteUint16(uint16(end))
	}
	w.WriteUint16(0) // instructionLength

	flags := make([]uint8, 0, numPoints)
	xDeltas := make([]int16, 0, numPoints)
	yDeltas := make([]int16, 0, numPoints)
	var prevX, prevY int16
	for _, contour := range contours {
		for _, p := range contour {
			dx, dy := p.X-prevX, p.Y-prevY
			prevX, prevY = p.X, p.Y

			var flag uint8
			if p.OnCurve {
				flag |= flagOnCurve
			}
			if dx == 0 {
				flag |= flagXSameOrPositive
			} else if -255 <= dx && dx <= 255 {
				flag |= flagXShortVector
				if 0 < dx {
					flag |= flagXSameOrPositive
				}
			}
			if dy == 0 {
				flag |= flagYSameOrPositive
			} else if -255 <= dy && dy <= 255 {
				flag |= flagYShortVector
				if 0 < dy {
					flag |= flagYSameOrPositive
				}
			}
			flags = append(flags, flag)
			xDeltas = append(xDeltas, dx)
			yDeltas = append(yDeltas, dy)
		}
	}

	for i := 0; i < len(flags); {
		flag := flags[i]
		run := 0
		for i+1+run < len(flags) && flags[i+1+run] == flag && run < 255 {
			run++
		}
		if 0 < run {
			w.WriteUint8(flag | flagRepeat)
			w.WriteUint8(uint8(run))
			i += 1 + run
		} else {
			w.WriteUint8(flag)
			i++
		}
	}

	for i, dx := range xDeltas {
		if flags[i]&flagXShortVector != 0 {
			if 0 < dx {
				w.WriteUint8(uint8(dx))
			} else {
				w.WriteUint8(uint8(-dx))
			}
		} else if flags[i]&flagXSameOrPositive == 0 {
			w.WriteInt16(dx)
		}
	}
	for i, dy := range yDeltas {
		if flags[i]&flagYShortVector != 0 {
			if 0 < dy {
				w.WriteUint8(uint8(dy))
			} else {
				w.WriteUint8(uint8(-dy))
			}
		} else if flags[i]&flagYSameOrPositive == 0 {
			w.WriteInt16(dy)
		}
	}
	return w.Bytes(), nil
}

// SetGlyphOutline replaces the outline of a glyph. The change takes effect
// when the font is written.
func (sfnt *SFNT) SetGlyphOutline(glyphID uint16, outline *GlyphOutline) error {
	if sfnt.Maxp.NumGlyphs <= glyphID {
		return fmt.Errorf("glyf: bad glyphID %v", glyphID)
	}
	b, err := encodeGlyphOutline(outline)
	if err != nil {
		return fmt.Errorf("glyph %v: %v", glyphID, err)
	}
	sfnt.setGlyphData(glyphID, b)
	return nil
}

// setGlyphData replaces the raw glyf record of a glyph.
func (sfnt *SFNT) setGlyphData(glyphID uint16, b []byte) {
	if sfnt.glyphData == nil {
		sfnt.glyphData = make([][]byte, sfnt.Maxp.NumGlyphs)
	}
	if b == nil {
		b = []byte{}
	}
	sfnt.glyphData[glyphID] = b
}
