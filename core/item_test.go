package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewStyleCarriesKindRecord(t *testing.T) {
	tests := []struct {
		kind  Kind
		shape bool
		line  bool
		frame bool
		bg    string
	}{
		{KindNote, false, false, false, DefaultNoteColor},
		{KindText, false, false, false, Transparent},
		{KindImage, false, false, false, Transparent},
		{KindShape, true, false, false, DefaultShapeColor},
		{KindLine, false, true, false, Transparent},
		{KindFrame, false, false, true, Transparent},
	}

	for _, tt := range tests {
		s := NewStyle(tt.kind)
		if (s.ShapeStyle != nil) != tt.shape || (s.LineStyle != nil) != tt.line || (s.FrameStyle != nil) != tt.frame {
			t.Errorf("%s: unexpected kind records %+v", tt.kind, s)
		}
		if s.Background != tt.bg {
			t.Errorf("%s: background mismatch: got %s, want %s", tt.kind, s.Background, tt.bg)
		}
	}
}

func TestStyleWireFormIsFlat(t *testing.T) {
	s := NewStyle(KindFrame)
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var bag map[string]any
	if err := json.Unmarshal(data, &bag); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bag["deviceType"] != "phone" {
		t.Errorf("deviceType mismatch: got %v", bag["deviceType"])
	}
	if _, ok := bag["shapeType"]; ok {
		t.Error("frame style should not carry shapeType")
	}

	var back Style
	if err := json.Unmarshal([]byte(`{"backgroundColor":"#fff","shapeType":"circle","borderWidth":2}`), &back); err != nil {
		t.Fatalf("unmarshal style: %v", err)
	}
	if back.ShapeStyle == nil || back.ShapeType != ShapeCircle {
		t.Errorf("shape record not decoded: %+v", back)
	}
	if back.Border.Width != 2 {
		t.Errorf("border width mismatch: got %v, want 2", back.Border.Width)
	}
}

func TestNormalizeDropsForeignRecords(t *testing.T) {
	s := Style{ShapeStyle: &ShapeStyle{ShapeType: ShapeCircle}, FrameStyle: &FrameStyle{Device: DeviceTablet}}
	s.Normalize(KindNote)
	if s.ShapeStyle != nil || s.FrameStyle != nil {
		t.Errorf("note style kept kind records: %+v", s)
	}

	s = Style{ShapeStyle: &ShapeStyle{ShapeType: ShapeCircle}}
	s.Normalize(KindFrame)
	if s.ShapeStyle != nil || s.FrameStyle == nil || s.FrameStyle.Device != DevicePhone {
		t.Errorf("frame normalisation mismatch: %+v", s)
	}
}

func TestStylePatchIgnoresMismatchedRecord(t *testing.T) {
	s := NewStyle(KindNote)
	device := DeviceDesktop
	color := "#000"
	StylePatch{DeviceType: &device, Background: &color}.Apply(&s)

	if s.FrameStyle != nil {
		t.Error("device type leaked onto note")
	}
	if s.Background != "#000" {
		t.Errorf("background mismatch: got %s", s.Background)
	}
}

func TestCloneDoesNotShareRecords(t *testing.T) {
	it := Item{ID: "a", Kind: KindShape, Style: NewStyle(KindShape)}
	cp := it.Clone()
	cp.Style.ShapeStyle.ShapeType = ShapeTriangle

	if it.Style.ShapeType != ShapeRectangle {
		t.Errorf("clone shares shape record: got %s", it.Style.ShapeType)
	}
}

func TestFontLookup(t *testing.T) {
	if FontMono.Class() != FontClassMono {
		t.Errorf("mono class mismatch: got %s", FontMono.Class())
	}
	if FontFamily("comic").CSS() != FontSans.CSS() {
		t.Error("unknown font should fall back to sans")
	}
	if FontFamily("comic").Valid() {
		t.Error("unknown font reported valid")
	}
}

func TestValidateItems(t *testing.T) {
	items := []Item{{ID: "a", Kind: KindNote}, {ID: "a", Kind: KindText}}
	if err := ValidateItems(items); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("expected ErrInvalidItem for duplicate ids, got %v", err)
	}
	if err := ValidateItems([]Item{{ID: "b", Kind: "sticker"}}); !errors.Is(err, ErrInvalidItem) {
		t.Errorf("expected ErrInvalidItem for unknown kind, got %v", err)
	}
	if err := ValidateItems([]Item{{ID: "c", Kind: KindLine}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"01HZX", "history_past_abc", "a-b_c"} {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v, want nil", id, err)
		}
	}
	for _, id := range []string{"", ".", "..", "a/b", "../etc"} {
		if err := ValidateID(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestNormalizeItemsAfterDecode(t *testing.T) {
	var items []Item
	data := `[{"id":"s","type":"shape","style":{}},{"id":"n","type":"note","style":{"deviceType":"tablet"}}]`
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		t.Fatal(err)
	}
	if items[1].Style.FrameStyle == nil {
		t.Fatal("decoder should have allocated a frame record on the note")
	}

	NormalizeItems(items)

	if items[0].Style.ShapeStyle == nil || items[0].Style.ShapeStyle.ShapeType != ShapeRectangle {
		t.Errorf("shape record mismatch: %+v", items[0].Style.ShapeStyle)
	}
	if items[1].Style.FrameStyle != nil {
		t.Errorf("note kept a frame record: %+v", items[1].Style.FrameStyle)
	}

	circle := ShapeCircle
	StylePatch{ShapeType: &circle}.Apply(&items[0].Style)
	if items[0].Style.ShapeStyle.ShapeType != ShapeCircle {
		t.Errorf("shape type mismatch: got %q, want circle", items[0].Style.ShapeStyle.ShapeType)
	}
}
