package codec

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabay/core/internal/domain/entities"
)

func sampleCandidates() []*entities.Candidate {
	a := &entities.Candidate{
		ID:                uuid.MustParse("7f0c1c1e-5b7a-4a53-9a4b-2d7d3a0f2b11"),
		Name:              "Jane Cruz",
		Age:               40,
		Position:          "Mayor",
		PartyAffiliation:  "Independent",
		Region:            "NCR",
		YearsOfExperience: 5,
		CampaignSlogan:    "Serve with heart",
		Platforms:         []string{"Health", "Housing"},
		SupportedIssues:   []string{"Universal Health Care"},
		OpposedIssues:     []string{},
		NotableLaws:       []string{"Free Tertiary Education Act"},
		ImagePath:         "resources/images/candidates/jane.png",
		SocialStance: map[entities.SocialIssue]entities.Stance{
			"Divorce":       entities.StanceAgree,
			"Death Penalty": entities.StanceDisagree,
		},
	}
	b := &entities.Candidate{
		ID:                uuid.MustParse("0b7bd0e2-8a1f-4a52-bf0e-1c94b1d8f0a2"),
		Name:              "Ramon Dela Paz",
		Age:               63,
		Position:          "Senator",
		PartyAffiliation:  "Lakas",
		Region:            "Region VII",
		YearsOfExperience: 30,
		CampaignSlogan:    "",
		Platforms:         []string{},
		SupportedIssues:   []string{},
		OpposedIssues:     []string{"Charter Change"},
		NotableLaws:       []string{},
		ImagePath:         entities.DefaultImagePath,
		SocialStance:      map[entities.SocialIssue]entities.Stance{},
	}
	return []*entities.Candidate{a, b}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{FormatBlock, FormatDelimited} {
		t.Run(name, func(t *testing.T) {
			cc, err := ForFormat(name)
			require.NoError(t, err)
			assert.Equal(t, name, cc.Name())

			want := sampleCandidates()
			data, err := cc.Encode(want)
			require.NoError(t, err)

			got, err := cc.Decode(data)
			require.NoError(t, err)
			assert.Empty(t, got.Skipped)
			assert.Equal(t, want, got.Candidates)
		})
	}
}

func TestRoundTripWithDelimitersInValues(t *testing.T) {
	for _, name := range []string{FormatBlock, FormatDelimited} {
		t.Run(name, func(t *testing.T) {
			cc, err := ForFormat(name)
			require.NoError(t, err)

			c := sampleCandidates()[0]
			c.CampaignSlogan = `Vote | for; change \ now`
			c.Platforms = []string{"Roads; bridges", "Jobs | wages"}
			c.Name = "Jane\nCruz"

			data, err := cc.Encode([]*entities.Candidate{c})
			require.NoError(t, err)

			got, err := cc.Decode(data)
			require.NoError(t, err)
			require.Len(t, got.Candidates, 1)
			assert.Equal(t, c, got.Candidates[0])
		})
	}
}

func TestDelimited_MalformedLineSkipped(t *testing.T) {
	data := "Jane Cruz|40|Mayor|Independent|NCR|5|Serve with heart|Health|||||\n" +
		"Broken|40|Mayor|Independent|NCR\n"

	got, err := NewDelimitedCodec().Decode([]byte(data))
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Jane Cruz", got.Candidates[0].Name)
	assert.Equal(t, []string{"Health"}, got.Candidates[0].Platforms)
	assert.Equal(t, uuid.Nil, got.Candidates[0].ID)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, 2, got.Skipped[0].Line)
}

func TestDelimited_NonNumericFieldsRejectRecord(t *testing.T) {
	data := "A|forty|Mayor|Ind|NCR|5|s||||||\n" +
		"B|40|Mayor|Ind|NCR|five|s||||||\n" +
		"C|40|Mayor|Ind|NCR|5|s|||||| \n"

	got, err := NewDelimitedCodec().Decode([]byte(data))
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "C", got.Candidates[0].Name)
	require.Len(t, got.Skipped, 2)
	assert.Contains(t, got.Skipped[0].Reason, "age")
	assert.Contains(t, got.Skipped[1].Reason, "experience")
}

func TestDelimited_LegacyStances(t *testing.T) {
	data := "A|40|Mayor|Ind|NCR|5|s|||||img.png|Divorce - Agree;death penalty - no data\n"

	got, err := NewDelimitedCodec().Decode([]byte(data))
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, map[entities.SocialIssue]entities.Stance{
		"Divorce":       entities.StanceAgree,
		"Death Penalty": entities.StanceNoData,
	}, got.Candidates[0].SocialStance)
}

func TestBlock_LegacyGrammar(t *testing.T) {
	data := `# exported from the admin panel
Name: Jane Cruz
Age: 40
Running Position: Mayor
Party Affiliation: Independent
Hometown Region: NCR
Social Stance: Divorce - Agree
Years of Experience: 5
Campaign Slogan: Serve with heart: always
Platforms: Health; Housing
Stances On Social Issues:
Death Penalty - Disagree
Federalism - Neutral
Image: jane.png

Name: Ramon Dela Paz
Age: 63
Positions: Senator
Party Affiliation: Lakas
Years of Experience: 30
`
	got, err := NewBlockCodec().Decode([]byte(data))
	require.NoError(t, err)
	assert.Empty(t, got.Skipped)
	require.Len(t, got.Candidates, 2)

	jane := got.Candidates[0]
	assert.Equal(t, "Mayor", jane.Position)
	assert.Equal(t, "NCR", jane.Region)
	assert.Equal(t, "Serve with heart: always", jane.CampaignSlogan)
	assert.Equal(t, []string{"Health", "Housing"}, jane.Platforms)
	assert.Equal(t, "jane.png", jane.ImagePath)
	assert.Equal(t, map[entities.SocialIssue]entities.Stance{
		"Divorce":       entities.StanceAgree,
		"Death Penalty": entities.StanceDisagree,
		"Federalism":    entities.StanceNeutral,
	}, jane.SocialStance)

	ramon := got.Candidates[1]
	assert.Equal(t, "Senator", ramon.Position)
	assert.Equal(t, entities.DefaultImagePath, ramon.ImagePath)
	assert.Equal(t, []string{}, ramon.NotableLaws)
	assert.NotNil(t, ramon.SocialStance)
}

func TestBlock_BadBlocksSkipped(t *testing.T) {
	data := strings.Join([]string{
		"Age: 50",
		"Name: Good One",
		"Age: 44",
		"Name: Bad Age",
		"Age: old",
		"Name: Bad Stance",
		"Social Stance: Divorce - Sometimes",
		"Name: Bad ID",
		"ID: nope",
	}, "\n")

	got, err := NewBlockCodec().Decode([]byte(data))
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Good One", got.Candidates[0].Name)
	assert.Equal(t, 44, got.Candidates[0].Age)

	require.Len(t, got.Skipped, 4)
	assert.Equal(t, 1, got.Skipped[0].Line)
	assert.Contains(t, got.Skipped[0].Reason, "no Name")
	assert.Contains(t, got.Skipped[1].Reason, "Age")
	assert.Contains(t, got.Skipped[2].Reason, "stance")
	assert.Contains(t, got.Skipped[3].Reason, "ID")
}

func TestBlock_EncodeLayout(t *testing.T) {
	data, err := NewBlockCodec().Encode(sampleCandidates()[:1])
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, blockHeader+"\n\nName: Jane Cruz\nID: 7f0c1c1e"))
	assert.Contains(t, text, "Platforms: Health; Housing\n")
	assert.Contains(t, text, "Opposed Issues:\n")
	assert.Contains(t, text, "Stances On Social Issues:\nDivorce - Agree\nDeath Penalty - Disagree\n")
}

func TestBlock_EmptyInput(t *testing.T) {
	got, err := NewBlockCodec().Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)
	assert.Empty(t, got.Skipped)
}

func TestForFormatUnknown(t *testing.T) {
	_, err := ForFormat("yaml")
	assert.Error(t, err)
}

func TestEscapeHelpers(t *testing.T) {
	in := "a|b;c\\d\ne"
	assert.Equal(t, in, unescape(escape(in, "|;")))
	assert.Equal(t, []string{`a\|b`, "c"}, splitEscaped(`a\|b|c`, '|'))
	assert.Equal(t, []string{}, splitList("", ';', false))
	assert.Equal(t, " x\t", unescape(escape(" x\t", "")))
	assert.Equal(t, "\u00a0y", unescape(escape("\u00a0y", "")))
}

func TestRoundTripKeepsPaddingAndEmptyItems(t *testing.T) {
	for _, name := range []string{FormatBlock, FormatDelimited} {
		t.Run(name, func(t *testing.T) {
			cc, err := ForFormat(name)
			require.NoError(t, err)

			c := sampleCandidates()[1]
			c.Name = " Ramon "
			c.CampaignSlogan = "  spaced  "
			c.Platforms = []string{"", " Roads"}
			c.NotableLaws = []string{""}
			c.Region = "\tVisayas"
			require.NoError(t, entities.Validate(c))

			data, err := cc.Encode([]*entities.Candidate{c})
			require.NoError(t, err)

			got, err := cc.Decode(data)
			require.NoError(t, err)
			assert.Empty(t, got.Skipped)
			require.Len(t, got.Candidates, 1)
			assert.Equal(t, c, got.Candidates[0])
		})
	}
}

func TestBlock_IDsStayWithTheirRecords(t *testing.T) {
	want := sampleCandidates()
	data, err := NewBlockCodec().Encode(want)
	require.NoError(t, err)

	got, err := NewBlockCodec().Decode(data)
	require.NoError(t, err)
	assert.Empty(t, got.Skipped)
	require.Len(t, got.Candidates, 2)
	for i := range want {
		assert.Equal(t, want[i].Name, got.Candidates[i].Name)
		assert.Equal(t, want[i].ID, got.Candidates[i].ID)
	}
}

func TestBlock_IDBeforeName(t *testing.T) {
	data := strings.Join([]string{
		"ID: 7f0c1c1e-5b7a-4a53-9a4b-2d7d3a0f2b11",
		"Name: Jane Cruz",
		"Age: 40",
		"",
		"ID: 0b7bd0e2-8a1f-4a52-bf0e-1c94b1d8f0a2",
		"Name: Ramon Dela Paz",
		"Age: 63",
		"",
		"Name: No ID",
		"Age: 50",
		"",
		"ID: 9a3e1f52-1c2d-4e5f-8a9b-0c1d2e3f4a5b",
		"Name: Last One",
	}, "\n")

	got, err := NewBlockCodec().Decode([]byte(data))
	require.NoError(t, err)
	assert.Empty(t, got.Skipped)
	require.Len(t, got.Candidates, 4)
	assert.Equal(t, "7f0c1c1e-5b7a-4a53-9a4b-2d7d3a0f2b11", got.Candidates[0].ID.String())
	assert.Equal(t, "Jane Cruz", got.Candidates[0].Name)
	assert.Equal(t, "0b7bd0e2-8a1f-4a52-bf0e-1c94b1d8f0a2", got.Candidates[1].ID.String())
	assert.Equal(t, 63, got.Candidates[1].Age)
	assert.Equal(t, uuid.Nil, got.Candidates[2].ID)
	assert.Equal(t, "Last One", got.Candidates[3].Name)
	assert.Equal(t, "9a3e1f52-1c2d-4e5f-8a9b-0c1d2e3f4a5b", got.Candidates[3].ID.String())
}
