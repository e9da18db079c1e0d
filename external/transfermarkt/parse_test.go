package transfermarkt

import (
	"strings"
	"testing"
)

const squadPage = `<html><body>
<div class="responsive-table">
<table class="items">
<thead><tr><th>#</th><th>Player</th></tr></thead>
<tbody>
<tr class="odd">
  <td class="zentriert rueckennummer">22</td>
  <td class="posrela">
    <table class="inline-table">
      <tr><td rowspan="2"><img title="David Raya"></td>
          <td class="hauptlink"><a href="/david-raya/profil/spieler/262749">David Raya</a></td></tr>
      <tr><td>Goalkeeper</td></tr>
    </table>
  </td>
</tr>
<tr class="even">
  <td class="zentriert rueckennummer">7</td>
  <td class="posrela">
    <table class="inline-table">
      <tr><td class="hauptlink"><a href="/bukayo-saka/profil/spieler/433177"> Bukayo
        Saka </a></td></tr>
      <tr><td>Right Winger</td></tr>
    </table>
  </td>
</tr>
<tr class="bg_blau_20"><td colspan="2">Loan</td></tr>
<tr class="odd">
  <td class="posrela"><table class="inline-table"><tr><td class="hauptlink"></td></tr></table></td>
</tr>
</tbody>
</table>
</div>
</body></html>`

func TestParseSquad(t *testing.T) {
	t.Parallel()

	players, err := parseSquad([]byte(squadPage))
	if err != nil {
		t.Fatalf("parse squad: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d: %+v", len(players), players)
	}
	if players[0].Name != "David Raya" || players[0].Position != "Goalkeeper" || players[0].ExternalID != "262749" {
		t.Fatalf("unexpected first player: %+v", players[0])
	}
	if players[1].Name != "Bukayo Saka" || players[1].Position != "Right Winger" {
		t.Fatalf("unexpected second player: %+v", players[1])
	}
}

func TestParseSquad_MissingTable(t *testing.T) {
	t.Parallel()

	if _, err := parseSquad([]byte(`<html><body><p>Access denied</p></body></html>`)); err == nil {
		t.Fatalf("expected error when squad table is missing")
	}
}

func TestParseSquad_EmptyTable(t *testing.T) {
	t.Parallel()

	players, err := parseSquad([]byte(`<table class="items"><tbody></tbody></table>`))
	if err != nil {
		t.Fatalf("parse squad: %v", err)
	}
	if len(players) != 0 {
		t.Fatalf("expected empty squad, got %+v", players)
	}
}

const searchPage = `<html><body>
<div class="box"><h2>Clubs</h2>
<table class="items"><tbody>
<tr class="odd">
  <td><a href="/fc-arsenal/startseite/verein/11" title="Arsenal FC"><img src="x.png"></a></td>
  <td class="hauptlink"><a href="/fc-arsenal/startseite/verein/11">Arsenal FC</a></td>
  <td>England</td><td>Premier League</td>
</tr>
<tr class="even">
  <td class="hauptlink"><a href="/arsenal-de-sarandi/startseite/verein/2920">Arsenal de Sarandí</a></td>
  <td>Argentina</td><td>Primera Nacional</td>
</tr>
</tbody></table>
</div>
<a href="/bukayo-saka/profil/spieler/433177">Bukayo Saka</a>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	t.Parallel()

	candidates, err := parseSearchResults([]byte(searchPage))
	if err != nil {
		t.Fatalf("parse search: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 clubs, got %d: %+v", len(candidates), candidates)
	}

	first := candidates[0]
	if first.ExternalID != "11" || first.Slug != "fc-arsenal" || first.Name != "Arsenal FC" {
		t.Fatalf("unexpected first candidate: %+v", first)
	}
	if first.Context == "" || !strings.Contains(first.Context, "Premier League") {
		t.Fatalf("expected row context to mention league, got %q", first.Context)
	}
	if candidates[1].Name != "Arsenal de Sarandí" || candidates[1].ExternalID != "2920" {
		t.Fatalf("unexpected second candidate: %+v", candidates[1])
	}
}
