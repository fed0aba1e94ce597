package gemini

import "fmt"

const rewriteInstruction = `Génère 3 versions "chelous" et DRÔLES basées sur le texte fourni :
- Variation 1 (Le Glitch): Un désordre total, répétitions de syllabes, comme un robot cassé qui essaie d'être poli mais qui sature.
- Variation 2 (Le Surréaliste): Remplace certains noms par des concepts absurdes (ex: "manger" devient "téléporter mon fromage"), garde une structure grammaticale mais le sens est totalement lunaire.
- Variation 3 (Le Philosophe Bourré): Une version longue, confuse, avec des analogies foireuses et une syntaxe approximative, comme si quelqu'un essayait d'expliquer le sens de la vie après 4 verres.
Retourne un objet JSON structuré selon le schéma demandé. Assure-toi que les textes sont vraiment drôles et décalés.`

func audioInstruction() string {
	return "Analyse cet audio. 1. Transcris exactement ce qui est dit. 2. " + rewriteInstruction
}

func textInstruction(text string) string {
	return fmt.Sprintf("Voici un texte : \"%s\". %s", text, rewriteInstruction)
}

func speechInstruction(text string) string {
	return "Lis ceci avec une intonation exagérée, bizarre et comique, en insistant sur le côté absurde : " + text
}
