package fingerprint_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sweeney/ir-learner/internal/fingerprint"
	"github.com/sweeney/ir-learner/internal/logic"
)

func TestTableIdentify(t *testing.T) {
	Convey("Given the built-in fingerprint set", t, func() {
		set := fingerprint.NewSet(fingerprint.Builtin()...)

		Convey("When a Panasonic TV_1 frame arrives", func() {
			name, table, ok := set.Identify(logic.DecodedEvent{
				Protocol: logic.ProtocolPanasonic,
				Value:    0x555AF148724C,
				Bits:     48,
			})

			Convey("Then it is named TV_1", func() {
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "TV_1")
				So(table, ShouldEqual, "panasonic-tv")
			})
		})

		Convey("When an unregistered Panasonic value arrives", func() {
			name, _, ok := set.Identify(logic.DecodedEvent{
				Protocol: logic.ProtocolPanasonic,
				Value:    0x555AF1480000,
				Bits:     48,
			})

			Convey("Then it is Unknown", func() {
				So(ok, ShouldBeFalse)
				So(name, ShouldEqual, fingerprint.Unknown)
			})
		})

		Convey("When a protocol without a table arrives", func() {
			name, table, ok := set.Identify(logic.DecodedEvent{Protocol: logic.ProtocolSony, Value: 0xA90, Bits: 12})

			Convey("Then it is Unknown with no table", func() {
				So(ok, ShouldBeFalse)
				So(name, ShouldEqual, fingerprint.Unknown)
				So(table, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an NEC table", t, func() {
		table := fingerprint.NewTable("tv", logic.ProtocolNEC, []fingerprint.Button{
			{Name: "TV_OFF", Value: 0x11A00FF, Address: 0x11, Command: 0xA0},
			{Name: "CH_1", Value: 0x11A807F, Address: 0x11, Command: 0xA8},
			{Name: "CH_3", Value: 0x11A52AD, Address: 0x11, Command: 0xA5},
			{Name: "CH_4", Value: 0x11A5AA5, Address: 0x11, Command: 0xA5},
		})

		Convey("When the value matches exactly", func() {
			name, ok := table.Identify(logic.DecodedEvent{Value: 0x11A807F})

			Convey("Then the value index wins", func() {
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "CH_1")
			})
		})

		Convey("When the value and the pair point at different buttons", func() {
			name, ok := table.Identify(logic.DecodedEvent{Value: 0x11A807F, Address: 0x11, Command: 0xA0})

			Convey("Then the value match takes priority", func() {
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "CH_1")
			})
		})

		Convey("When only the address and command match", func() {
			name, ok := table.Identify(logic.DecodedEvent{Value: 0xDEAD, Address: 0x11, Command: 0xA0})

			Convey("Then the pair index is used", func() {
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "TV_OFF")
			})
		})

		Convey("When the address is zero", func() {
			name, ok := table.Identify(logic.DecodedEvent{Value: 0xDEAD, Address: 0, Command: 0xA0})

			Convey("Then the pair fallback is skipped", func() {
				So(ok, ShouldBeFalse)
				So(name, ShouldEqual, fingerprint.Unknown)
			})
		})

		Convey("When the command is zero", func() {
			_, ok := table.Identify(logic.DecodedEvent{Value: 0xDEAD, Address: 0x11, Command: 0})

			Convey("Then the pair fallback is skipped", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When two buttons share a pair", func() {
			name, ok := table.Identify(logic.DecodedEvent{Value: 0xDEAD, Address: 0x11, Command: 0xA5})

			Convey("Then the first definition wins", func() {
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "CH_3")
			})
		})

		Convey("Then mutating the Buttons result leaves the table intact", func() {
			b := table.Buttons()
			b[0].Name = "CHANGED"
			So(table.Buttons()[0].Name, ShouldEqual, "TV_OFF")
			So(table.Len(), ShouldEqual, 4)
		})
	})
}

func TestSetOrdering(t *testing.T) {
	Convey("Given a Panasonic table added before an NEC table", t, func() {
		set := fingerprint.NewSet(
			fingerprint.NewTable("pana", logic.ProtocolPanasonic, nil),
			fingerprint.NewTable("nec", logic.ProtocolNEC, []fingerprint.Button{
				{Name: "CH_1", Value: 1},
				{Name: "CH_2", Value: 2},
			}),
		)

		Convey("Then Tables keeps insertion order", func() {
			tables := set.Tables()
			So(len(tables), ShouldEqual, 2)
			So(tables[0].Name, ShouldEqual, "pana")
			So(tables[1].Name, ShouldEqual, "nec")
			So(set.Buttons(), ShouldEqual, 2)
		})

		Convey("When a second NEC table is added", func() {
			set.Add(fingerprint.NewTable("nec-2", logic.ProtocolNEC, []fingerprint.Button{
				{Name: "SHADOWED", Value: 1},
				{Name: "POWER", Value: 3},
			}))

			Convey("Then both stay in the set", func() {
				So(len(set.Tables()), ShouldEqual, 3)
				So(set.Buttons(), ShouldEqual, 4)
			})

			Convey("Then the earlier table wins a shared value", func() {
				name, table, ok := set.Identify(logic.DecodedEvent{Protocol: logic.ProtocolNEC, Value: 1})
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "CH_1")
				So(table, ShouldEqual, "nec")
			})

			Convey("Then values only the later table knows still resolve", func() {
				name, table, ok := set.Identify(logic.DecodedEvent{Protocol: logic.ProtocolNEC, Value: 3})
				So(ok, ShouldBeTrue)
				So(name, ShouldEqual, "POWER")
				So(table, ShouldEqual, "nec-2")
			})

			Convey("Then a value in no table is Unknown", func() {
				name, table, ok := set.Identify(logic.DecodedEvent{Protocol: logic.ProtocolNEC, Value: 9})
				So(ok, ShouldBeFalse)
				So(name, ShouldEqual, fingerprint.Unknown)
				So(table, ShouldBeEmpty)
			})
		})
	})
}

const sampleProfiles = `
profiles:
  - name: living-room
    protocol: nec
    address: 0x11
    buttons:
      - {name: CH_1, value: 0x11A807F, command: 0xA8}
      - {name: MUTE, command: 0xB0}
      - {name: INPUT, command: 0xC0, address: 0x12}
  - name: bedroom
    protocol: PANASONIC
    buttons:
      - {name: TV_1, value: 0x555AF148724C}
`

func TestParse(t *testing.T) {
	Convey("Given a valid profile document", t, func() {
		tables, err := fingerprint.Parse([]byte(sampleProfiles))

		Convey("Then both tables are parsed", func() {
			So(err, ShouldBeNil)
			So(len(tables), ShouldEqual, 2)
			So(tables[0].Name, ShouldEqual, "living-room")
			So(tables[0].Protocol, ShouldEqual, logic.ProtocolNEC)
			So(tables[1].Protocol, ShouldEqual, logic.ProtocolPanasonic)
		})

		Convey("Then buttons inherit the profile address", func() {
			name, ok := tables[0].Identify(logic.DecodedEvent{Address: 0x11, Command: 0xB0})
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "MUTE")
		})

		Convey("Then a button address overrides the profile address", func() {
			name, ok := tables[0].Identify(logic.DecodedEvent{Address: 0x12, Command: 0xC0})
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "INPUT")
		})

		Convey("Then hex values are parsed", func() {
			name, ok := tables[1].Identify(logic.DecodedEvent{Value: 0x555AF148724C})
			So(ok, ShouldBeTrue)
			So(name, ShouldEqual, "TV_1")
		})
	})

	Convey("Given invalid profile documents", t, func() {
		cases := []struct {
			name string
			doc  string
		}{
			{"unknown protocol", "profiles:\n  - name: x\n    protocol: XMP\n"},
			{"missing name", "profiles:\n  - protocol: NEC\n"},
			{"empty button", "profiles:\n  - name: x\n    protocol: NEC\n    buttons:\n      - {name: A}\n"},
			{"bad number", "profiles:\n  - name: x\n    protocol: NEC\n    buttons:\n      - {name: A, value: zz}\n"},
			{"not yaml", "profiles: ["},
		}
		for _, c := range cases {
			_, err := fingerprint.Parse([]byte(c.doc))
			Convey("Then "+c.name+" is rejected", func() {
				So(errors.Is(err, fingerprint.ErrInvalidProfile), ShouldBeTrue)
			})
		}
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a profile file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "profiles.yaml")
		So(os.WriteFile(path, []byte(sampleProfiles), 0o644), ShouldBeNil)

		tables, err := fingerprint.LoadFile(path)

		Convey("Then the tables load", func() {
			So(err, ShouldBeNil)
			So(len(tables), ShouldEqual, 2)
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := fingerprint.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

		Convey("Then an error is returned", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
