package intent

import (
	"regexp"

	"github.com/nadzzz/domus/internal/message"
)

// pattern is one intent regexp. notFollowedBy, when set, rejects a match
// whose trailing text matches it.
type pattern struct {
	re            *regexp.Regexp
	notFollowedBy *regexp.Regexp
}

func (p pattern) find(s string) []int {
	if p.notFollowedBy == nil {
		return p.re.FindStringIndex(s)
	}
	for _, loc := range p.re.FindAllStringIndex(s, -1) {
		if !p.notFollowedBy.MatchString(s[loc[1]:]) {
			return loc
		}
	}
	return nil
}

type intentPatterns struct {
	intent   message.Intent
	patterns []pattern
}

func list(exprs ...string) []pattern {
	out := make([]pattern, len(exprs))
	for i, e := range exprs {
		out[i] = pattern{re: regexp.MustCompile(e)}
	}
	return out
}

// Lists are ordered most specific first; confidence decays with position.
var turnOnPatterns = list(
	`\b(enciende|encender|encienda|encende|prende|prender|prenda)\b`,
	`\b(activa|activar|active)\b`,
	`\b(inicia|iniciar|inicie)\b`,
	`\b(arranca|arrancar|arranque)\b`,
	`\b(conecta|conectar|conecte)\b`,
	`\b(dale|darle)\s+(luz|energia|corriente)\b`,

	// subjunctive, as left behind by negation stripping
	`\b(enciendas|encendas|prendas|actives|inicies|arranques|conectes)\b`,

	`\bpon(er|go|ga|le)?\s+(en\s+marcha|funcionando)\b`,
	`\bpon(er|go|ga|le|me)?\s+(la\s+)?(luz|lampara)\b`,
	`\b(que\s+)?(se\s+)?encienda\b`,
	`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?encienda\b`,
	`\b(haz|hazme)\s+(que\s+)?(se\s+)?encienda\b`,

	`\bda(r|me|le)?\s+(luz|energia)\b`,
	`\becha(r)?\s+luz\b`,

	`\b(por\s+favor\s+)?(enciende|prende|activa)\b`,

	`\bprende(me|le)?\b`,
	`\bencende(me|le)?\b`,
	`\bilumina(r|me)?\b`,

	`\b(turn\s+on|switch\s+on)\b`,
	`\b(power\s+on|start|enable)\b`,
	`\b(light\s+up|activate)\b`,
	`\b(please\s+)?(turn|switch)\s+on\b`,
)

var turnOffPatterns = list(
	`\b(apaga|apagar|apague)\b`,
	`\b(desactiva|desactivar|desactive)\b`,
	`\b(deten|detener|detenga)\b`,
	`\b(para|parar|pare)\s+(el|la)?\b`,
	`\b(desconecta|desconectar|desconecte)\b`,
	`\b(corta|cortar|corte)\s+(la\s+)?(luz|energia|corriente)\b`,

	`\b(apagues|desactives|detengas|pares|desconectes|cortes)\b`,

	`\b(quita|quitar|quite)\s+(la\s+)?(luz|energia)\b`,
	`\b(que\s+)?(se\s+)?apague\b`,
	`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?apague\b`,

	`\bapaga(me|le)?\b`,
	`\bcorta(le)?\s+(la\s+)?luz\b`,

	`\b(turn\s+off|switch\s+off)\b`,
	`\b(power\s+off|stop|disable)\b`,
	`\b(shut\s+(off|down)|deactivate)\b`,
	`\b(please\s+)?(turn|switch)\s+off\b`,
)

var openPatterns = list(
	`\b(abre|abrir|abra|abri|abrime)\b`,
	`\b(despeja|despejar|despeje)\b`,
	`\b(descorre|descorrer|descorra)\b`,
	`\b(levanta|levantar|levante)\b`,
	`\b(sube|subir|suba)\s+(la|el)?\s*(persiana|cortina)?\b`,
	`\b(destapa|destapar|destape)\b`,

	`\b(abras|despejes|descorras|levantes|subas|destapes)\b`,

	`\b(que\s+)?(se\s+)?abra\b`,
	`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?abra\b`,
	`\bdeja(r)?\s+(abierto|abierta|pasar)\b`,

	`\babri(me|le)?\b`,
	`\bdestraba(me|le)?\b`,

	`\b(open|unlock|raise)\b`,
	`\b(lift\s+up|pull\s+up)\b`,
	`\b(please\s+)?open\b`,
	`\b(roll\s+up|slide\s+open)\b`,
)

var closePatterns = list(
	`\b(cierra|cerrar|cierre|cerra|cierrame)\b`,
	`\b(corre|correr|corra)\s+(la|el)?\s*(cortina|persiana)?\b`,
	`\b(baja|bajar|baje)\s+(la|el)?\s*(persiana|cortina|toldo)?\b`,
	`\b(tapa|tapar|tape)\b`,
	`\b(bloquea|bloquear|bloquee)\b`,

	`\b(cierres|cerres|corras|bajes|tapes|bloquees)\b`,

	`\b(que\s+)?(se\s+)?cierre\b`,
	`\b(quiero|necesito|deseo)\s+(que\s+)?(se\s+)?cierre\b`,
	`\bdeja(r)?\s+(cerrado|cerrada)\b`,

	`\bcerra(me|le)?\b`,
	`\btraba(me|le)?\b`,

	`\b(close|shut|lock)\b`,
	`\b(lower|pull\s+down)\b`,
	`\b(please\s+)?close\b`,
	`\b(roll\s+down|slide\s+(shut|close))\b`,
)

var statusPatterns = list(
	`\b(esta|estan)\s+(encendid[oa]|apagad[oa]|abiert[oa]|cerrad[oa]|activad[oa]|funcionando)\b`,
	`\bcomo\s+(esta|estan)\b`,
	`\bque\s+tal\s+(esta|estan)\b`,
	`\bcual\s+es\s+(el\s+)?(estado|status)\b`,

	`\b(estado|status|situacion)\s+(de|del|de\s+la|de\s+el)\b`,
	`\b(dime|decime|muestrame|dame)\s+(el\s+)?(estado|status)\b`,
	`\b(consulta|consultar|verifica|verificar|revisa|revisar|checa|chequea)\b`,
	`\b(info|informacion)\s+(de|del|sobre)\b`,

	`\b(hay\s+)?luz\s+(en|encendida)\b`,
	`\b(funciona|funcionando|anda|andando)\b`,
	`\bque\s+pasa\s+con\b`,

	`\b(fijate|fija)\s+(si|como)\b`,
	`\b(checa|chequea)\b`,

	`\b(is|are)\s+(the\s+)?\w+\s+(on|off|open|closed)\b`,
	`\b(what\s+is|what\s*s)\s+(the\s+)?(status|state)\b`,
	`\b(check|verify|show)\s+(the\s+)?(status|state)\b`,
	`\b(how\s+is|how\s*s)\s+(the\s+)?\w+\b`,
	`\b(status|state)\s+(of|for)\b`,
)

var togglePatterns = []pattern{
	{re: regexp.MustCompile(`\b(alterna|alternar|alterne)\b`)},
	{re: regexp.MustCompile(`\b(cambia|cambiar|cambie)\s+(el\s+)?(estado|modo)\b`)},
	{re: regexp.MustCompile(`\b(invierte|invertir|invierta)\s+(el\s+)?(estado)?\b`)},
	{re: regexp.MustCompile(`\b(si\s+esta\s+)?(encendid[oa]|prendid[oa])\s*,?\s*(apaga|apagala|apagalo)\b`)},
	{re: regexp.MustCompile(`\b(si\s+esta\s+)?(apagad[oa])\s*,?\s*(enciende|prendela|prendelo)\b`)},
	// "switch" on its own, not "switch on/off"
	{re: regexp.MustCompile(`\bswitch(ea|ear)?\b`), notFollowedBy: regexp.MustCompile(`^\s+(on|off)\b`)},

	{re: regexp.MustCompile(`\b(toggle|flip)\b`)},
	{re: regexp.MustCompile(`\bchange\s+(the\s+)?(state|mode)\b`)},
}

// table lists intents in declaration order, which breaks confidence ties.
var table = []intentPatterns{
	{message.IntentTurnOn, turnOnPatterns},
	{message.IntentTurnOff, turnOffPatterns},
	{message.IntentOpen, openPatterns},
	{message.IntentClose, closePatterns},
	{message.IntentStatus, statusPatterns},
	{message.IntentToggle, togglePatterns},
}
