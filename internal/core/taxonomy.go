package core

// DefaultTaxonomy seeds the per-owner taxonomy document on first read.
// This is the single source of truth for category suggestions; every
// caller goes through the categories service instead of keeping its own
// table.
func DefaultTaxonomy() []Category {
	return []Category{
		{Name: "Entrate", Subcategories: []string{"Stipendio", "Rimborso", "Vendita", "Bonus", "Interessi"}},
		{Name: "Casa", Subcategories: []string{"Affitto/Mutuo", "Bollette", "Manutenzione", "Arredo"}},
		{Name: "Trasporti", Subcategories: []string{"Carburante", "Assicurazione", "Treno/Bus", "Pedaggi", "Parcheggio"}},
		{Name: "Spesa", Subcategories: []string{"Supermercato", "Ortofrutta", "Alimentari"}},
		{Name: "Ristorazione", Subcategories: []string{"Pranzo", "Cena", "Bar/Caffè", "Delivery"}},
		{Name: "Intrattenimento", Subcategories: []string{"Cinema", "Concerti/Eventi", "Abbonamenti Streaming", "Libri/Giochi"}},
		{Name: "Salute", Subcategories: []string{"Farmacia", "Visite", "Palestra", "Integratori"}},
		{Name: "Personale", Subcategories: []string{"Abbigliamento", "Cura Persona", "Parrucchiere/Barbiere"}},
		{Name: "Viaggi", Subcategories: []string{"Hotel", "Volo/Treno", "Ristoranti", "Attività"}},
		{Name: "Utenze/Servizi", Subcategories: []string{"Telefonia/Internet", "Assicurazioni", "Software/SaaS"}},
		{Name: "Tasse", Subcategories: []string{"Imposte", "Bolli"}},
		{Name: DefaultCategory, Subcategories: []string{"Varie"}},
	}
}
