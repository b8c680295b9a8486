package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type CandidatePassData struct {
	PassNumber      string
	CandidateName   string
	CandidateNumber string
	PositionTitle   string
	StageLabel      string
	StatusLabel     string
	NextAction      string
	ValidUntil      string
	// VerifyURL is encoded into the QR code; empty skips it.
	VerifyURL string

	Stages    []PassStage
	Interview *PassInterview
}

type PassStage struct {
	Label string
	State string
}

type PassInterview struct {
	Date      string
	StartTime string
	EndTime   string
	Round     int
	Confirmed bool
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateCandidatePass(ctx context.Context, data CandidatePassData) (io.Reader, error) {
	if strings.TrimSpace(data.PassNumber) == "" {
		return nil, fmt.Errorf("pass number is required")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Candidate Pass", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	header := col.New(8).Add(
		text.New("Pass number: "+data.PassNumber, props.Text{Top: 0}),
		text.New("Candidate: "+data.CandidateName, props.Text{Top: 5}),
		text.New("Candidate number: "+data.CandidateNumber, props.Text{Top: 10}),
		text.New("Position: "+data.PositionTitle, props.Text{Top: 15}),
		text.New("Valid until: "+data.ValidUntil, props.Text{Top: 20}),
	)
	if data.VerifyURL != "" {
		m.AddRow(35, header, code.NewQrCol(4, data.VerifyURL, props.Rect{Center: true, Percent: 90}))
	} else {
		m.AddRow(35, header, col.New(4))
	}

	m.AddRow(15,
		text.NewCol(12, data.StageLabel+": "+data.StatusLabel, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)
	if data.NextAction != "" {
		m.AddRow(10,
			text.NewCol(12, "Next step: "+data.NextAction, props.Text{Size: 10}),
		)
	}

	m.AddRow(10,
		text.NewCol(8, "Stage", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Progress", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, stage := range data.Stages {
		m.AddRow(8,
			text.NewCol(8, stage.Label, props.Text{Size: 9}),
			text.NewCol(4, stage.State, props.Text{Size: 9, Align: align.Right}),
		)
	}

	if iv := data.Interview; iv != nil {
		status := "Awaiting your confirmation"
		if iv.Confirmed {
			status = "Confirmed"
		}
		m.AddRow(25,
			col.New(12).Add(
				text.New(fmt.Sprintf("Interview round %d", iv.Round), props.Text{Style: fontstyle.Bold, Top: 5}),
				text.New(fmt.Sprintf("%s, %s - %s", iv.Date, iv.StartTime, iv.EndTime), props.Text{Top: 11}),
				text.New(status, props.Text{Top: 16}),
			),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
